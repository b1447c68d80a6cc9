package messages

import (
	"github.com/NilFoundation/ibft/internal/types"
)

// PreparedCertificate proves that a quorum prepared the proposal in its round.
type PreparedCertificate struct {
	Proposal *Proposal
	Prepares []*Prepare
}

func NewPreparedCertificate(proposal *Proposal, prepares []*Prepare) *PreparedCertificate {
	return &PreparedCertificate{Proposal: proposal, Prepares: prepares}
}

func (c *PreparedCertificate) Round() ConsensusRoundIdentifier {
	return c.Proposal.RoundIdentifier()
}

func (c *PreparedCertificate) Block() *types.Block {
	return c.Proposal.Payload().Block
}

// RoundChangeCertificate is a quorum of round changes targeting the same round.
type RoundChangeCertificate struct {
	RoundChanges []*RoundChange
}

func NewRoundChangeCertificate(roundChanges []*RoundChange) *RoundChangeCertificate {
	return &RoundChangeCertificate{RoundChanges: roundChanges}
}

// LatestPreparedCertificate returns the prepared certificate with the highest round, or nil.
func (c *RoundChangeCertificate) LatestPreparedCertificate() *PreparedCertificate {
	return FindLatestPreparedCertificate(c.RoundChanges)
}

func FindLatestPreparedCertificate(roundChanges []*RoundChange) *PreparedCertificate {
	var latest *PreparedCertificate
	for _, rc := range roundChanges {
		pc := rc.Payload().PreparedCertificate
		if pc == nil {
			continue
		}
		if latest == nil || latest.Round().Less(pc.Round()) {
			latest = pc
		}
	}
	return latest
}
