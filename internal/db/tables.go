package db

type TableName string

const (
	HeaderTable            = TableName("Header")
	BodyTable              = TableName("Body")
	ReceiptsTable          = TableName("Receipts")
	BlockHashByNumberIndex = TableName("BlockHashByNumber")
	LastBlockTable         = TableName("LastBlock")
)
