package statemachine

import (
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/ethereum/go-ethereum/common"
)

// authoredMessages keeps at most one message per author in arrival order.
type authoredMessages[P messages.Payload] struct {
	authors map[common.Address]struct{}
	list    []*messages.SignedData[P]
}

func newAuthoredMessages[P messages.Payload]() *authoredMessages[P] {
	return &authoredMessages[P]{authors: make(map[common.Address]struct{})}
}

func (m *authoredMessages[P]) add(msg *messages.SignedData[P]) bool {
	if _, ok := m.authors[msg.Author()]; ok {
		return false
	}
	m.authors[msg.Author()] = struct{}{}
	m.list = append(m.list, msg)
	return true
}

// retain drops the messages keep rejects.
func (m *authoredMessages[P]) retain(keep func(*messages.SignedData[P]) bool) {
	kept := m.list[:0]
	for _, msg := range m.list {
		if keep(msg) {
			kept = append(kept, msg)
		} else {
			delete(m.authors, msg.Author())
		}
	}
	clear(m.list[len(kept):])
	m.list = kept
}

func (m *authoredMessages[P]) len() int {
	return len(m.list)
}

func (m *authoredMessages[P]) all() []*messages.SignedData[P] {
	return append([]*messages.SignedData[P](nil), m.list...)
}
