package logging

const (
	// FieldError can be used instead of Err(err) if you have only the error message string.
	FieldError = "err"

	FieldComponent = "component"

	FieldDuration = "duration"

	FieldP2PIdentity = "p2pIdentity"
	FieldPeerId      = "peerId"
	FieldTopic       = "topic"
	FieldProtocolID  = "protocolId"

	FieldTransactionHash  = "txnHash"
	FieldTransactionNonce = "txnNonce"
	FieldTransactionFrom  = "txnFrom"

	FieldBlockHash   = "blockHash"
	FieldBlockNumber = "blockNumber"
	FieldDigest      = "digest"

	FieldAddress   = "address"
	FieldAuthor    = "author"
	FieldProposer  = "proposer"
	FieldPublicKey = "publicKey"
	FieldSignature = "signature"
	FieldHeight    = "height"
	FieldRound     = "round"
	FieldType      = "type"
	FieldCount     = "count"
	FieldQuorum    = "quorum"
)
