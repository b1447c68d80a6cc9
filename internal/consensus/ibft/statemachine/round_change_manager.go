package statemachine

import (
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/validation"
)

type roundChangeStatus struct {
	received *authoredMessages[messages.RoundChangePayload]
	actioned bool
}

// RoundChangeManager collects round changes per target round and produces
// the round change certificate once a quorum of validators asked for the round.
type RoundChangeManager struct {
	quorum    int
	validator *validation.RoundChangeMessageValidator
	rounds    map[uint32]*roundChangeStatus
}

func NewRoundChangeManager(quorum int, validator *validation.RoundChangeMessageValidator) *RoundChangeManager {
	return &RoundChangeManager{
		quorum:    quorum,
		validator: validator,
		rounds:    make(map[uint32]*roundChangeStatus),
	}
}

// AppendRoundChangeMessage returns the certificate of the message's round when the
// message completes the quorum. The certificate of a round is returned only once.
func (m *RoundChangeManager) AppendRoundChangeMessage(msg *messages.RoundChange) *messages.RoundChangeCertificate {
	if !m.validator.ValidateMessage(msg) {
		return nil
	}

	round := msg.RoundIdentifier().Round
	status, ok := m.rounds[round]
	if !ok {
		status = &roundChangeStatus{received: newAuthoredMessages[messages.RoundChangePayload]()}
		m.rounds[round] = status
	}
	status.received.add(msg)

	if status.actioned || status.received.len() < m.quorum {
		return nil
	}
	status.actioned = true
	return messages.NewRoundChangeCertificate(status.received.all())
}

// DiscardRoundsPriorTo forgets the round changes for rounds before the given one.
func (m *RoundChangeManager) DiscardRoundsPriorTo(round messages.ConsensusRoundIdentifier) {
	for r := range m.rounds {
		if r < round.Round {
			delete(m.rounds, r)
		}
	}
}

func (m *RoundChangeManager) roundCount() int {
	return len(m.rounds)
}
