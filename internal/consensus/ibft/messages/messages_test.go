package messages

import (
	"testing"

	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newKey(t *testing.T) crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func newBlock(t *testing.T, round uint32) *types.Block {
	t.Helper()
	extra, err := (&types.ExtraData{
		Validators: []common.Address{common.HexToAddress("0x01")},
		Round:      round,
	}).Encode()
	require.NoError(t, err)
	return types.NewBlock(&types.Header{Number: 1, Timestamp: 10, Extra: extra}, nil)
}

func roundTrip[P Payload](t *testing.T, signed *SignedData[P]) *SignedData[P] {
	t.Helper()

	msg, err := NewMessage(signed)
	require.NoError(t, err)
	data, err := msg.Encode()
	require.NoError(t, err)

	decodedMsg, err := DecodeMessage(data)
	require.NoError(t, err)
	require.Equal(t, signed.MessageCode(), decodedMsg.Code)

	decoded, err := Decode[P](decodedMsg)
	require.NoError(t, err)
	require.Equal(t, signed.Author(), decoded.Author())
	require.Equal(t, signed.Signature(), decoded.Signature())
	require.Equal(t, signed.RoundIdentifier(), decoded.RoundIdentifier())
	return decoded
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	key := newKey(t)
	factory := NewMessageFactory(key)
	round := NewRoundIdentifier(5, 2)
	block := newBlock(t, 2)

	proposal, err := factory.CreateProposal(round, block)
	require.NoError(t, err)
	decodedProposal := roundTrip(t, proposal)
	assert.Equal(t, block.SealHash(), decodedProposal.Payload().Block.SealHash())

	prepare, err := factory.CreatePrepare(round, block.SealHash())
	require.NoError(t, err)
	assert.Equal(t, block.SealHash(), roundTrip(t, prepare).Payload().Digest)

	seal, err := factory.CreateCommitSeal(block.SealHash())
	require.NoError(t, err)
	commit, err := factory.CreateCommit(round, block.SealHash(), seal)
	require.NoError(t, err)
	decodedCommit := roundTrip(t, commit)
	assert.Equal(t, seal, decodedCommit.Payload().CommitSeal)
	assert.Equal(t, block.SealHash(), decodedCommit.Payload().Digest)

	emptyRoundChange, err := factory.CreateRoundChange(round.NextRound(), nil)
	require.NoError(t, err)
	assert.Nil(t, roundTrip(t, emptyRoundChange).Payload().PreparedCertificate)

	pc := NewPreparedCertificate(proposal, []*Prepare{prepare})
	roundChange, err := factory.CreateRoundChange(round.NextRound(), pc)
	require.NoError(t, err)
	decodedPc := roundTrip(t, roundChange).Payload().PreparedCertificate
	require.NotNil(t, decodedPc)
	assert.Equal(t, round, decodedPc.Round())
	require.Len(t, decodedPc.Prepares, 1)
	assert.Equal(t, factory.Address(), decodedPc.Prepares[0].Author())

	rcc := NewRoundChangeCertificate([]*RoundChange{emptyRoundChange, roundChange})
	newProposal, err := factory.CreateProposal(round.NextRound(), block)
	require.NoError(t, err)
	newRound, err := factory.CreateNewRound(round.NextRound(), rcc, newProposal)
	require.NoError(t, err)
	decodedNewRound := roundTrip(t, newRound)
	require.Len(t, decodedNewRound.Payload().RoundChangeCertificate.RoundChanges, 2)
	assert.Equal(t, round, decodedNewRound.Payload().RoundChangeCertificate.LatestPreparedCertificate().Round())
	assert.Equal(t, factory.Address(), decodedNewRound.Payload().Proposal.Author())
}

func TestDecodeRejectsWrongCode(t *testing.T) {
	t.Parallel()

	factory := NewMessageFactory(newKey(t))
	prepare, err := factory.CreatePrepare(NewRoundIdentifier(1, 0), common.HexToHash("0x01"))
	require.NoError(t, err)

	msg, err := NewMessage(prepare)
	require.NoError(t, err)

	_, err = Decode[CommitPayload](msg)
	require.ErrorIs(t, err, ErrUnexpectedCode)

	msg.Code = 42
	data, err := msg.Encode()
	require.NoError(t, err)
	_, err = DecodeMessage(data)
	require.ErrorIs(t, err, ErrUnknownMessageCode)
}

func TestTamperedPayloadChangesAuthor(t *testing.T) {
	t.Parallel()

	factory := NewMessageFactory(newKey(t))
	prepare, err := factory.CreatePrepare(NewRoundIdentifier(1, 0), common.HexToHash("0x01"))
	require.NoError(t, err)

	forged, err := Recover(PreparePayload{Round: NewRoundIdentifier(1, 0), Digest: common.HexToHash("0x02")}, prepare.Signature())
	require.NoError(t, err)
	assert.NotEqual(t, factory.Address(), forged.Author())

	_, err = Recover(prepare.Payload(), []byte{1, 2, 3})
	require.ErrorIs(t, err, crypto.ErrInvalidSignature)
}

func TestLatestPreparedCertificate(t *testing.T) {
	t.Parallel()

	factory := NewMessageFactory(newKey(t))
	certAt := func(round uint32) *PreparedCertificate {
		proposal, err := factory.CreateProposal(NewRoundIdentifier(1, round), newBlock(t, round))
		require.NoError(t, err)
		return NewPreparedCertificate(proposal, nil)
	}
	roundChange := func(pc *PreparedCertificate) *RoundChange {
		rc, err := factory.CreateRoundChange(NewRoundIdentifier(1, 4), pc)
		require.NoError(t, err)
		return rc
	}

	assert.Nil(t, FindLatestPreparedCertificate([]*RoundChange{roundChange(nil), roundChange(nil)}))

	latest := FindLatestPreparedCertificate([]*RoundChange{
		roundChange(certAt(1)), roundChange(nil), roundChange(certAt(3)), roundChange(certAt(2)),
	})
	require.NotNil(t, latest)
	assert.Equal(t, uint32(3), latest.Round().Round)
}

func TestRoundIdentifierOrdering(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		a := NewRoundIdentifier(rapid.Uint64Range(0, 5).Draw(t, "ah"), rapid.Uint32Range(0, 5).Draw(t, "ar"))
		b := NewRoundIdentifier(rapid.Uint64Range(0, 5).Draw(t, "bh"), rapid.Uint32Range(0, 5).Draw(t, "br"))

		if a.Cmp(b) != -b.Cmp(a) {
			t.Fatalf("Cmp is not antisymmetric for %s and %s", a, b)
		}
		if (a.Cmp(b) == 0) != (a == b) {
			t.Fatalf("Cmp equality disagrees with == for %s and %s", a, b)
		}
		if a.Height < b.Height && !a.Less(b) {
			t.Fatalf("lower height must order first: %s vs %s", a, b)
		}
		if !a.Less(a.NextRound()) {
			t.Fatalf("next round must order after %s", a)
		}
	})
}
