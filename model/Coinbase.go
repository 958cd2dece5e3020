package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/bsv-blockchain/go-bt/v2"
	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/go-chaincfg"
	"github.com/bsv-blockchain/go-wire"
	"github.com/horizenofficial/sctemplate/errors"
)

const (
	baseSubsidy          = 50 * 100_000_000
	maxCoinbaseScriptLen = 100
)

// CalcBlockSubsidy halves the base subsidy every SubsidyReductionInterval blocks.
// A zero interval never halves.
func CalcBlockSubsidy(height uint32, params *chaincfg.Params) uint64 {
	if params == nil || params.SubsidyReductionInterval == 0 {
		return baseSubsidy
	}

	halvings := height / uint32(params.SubsidyReductionInterval) //nolint:gosec
	if halvings >= 64 {
		return 0
	}

	return uint64(baseSubsidy) >> halvings
}

// CreateCoinbaseTx builds a coinbase paying value to a single P2PKH output. The
// unlocking script carries the BIP34 height followed by arbitraryText.
func CreateCoinbaseTx(height uint32, value uint64, arbitraryText string, pubKeyHash []byte) (*bt.Tx, error) {
	if len(pubKeyHash) != 20 {
		return nil, errors.NewInvalidArgumentError("miner pubkey hash must be 20 bytes, got %d", len(pubKeyHash))
	}

	heightBytes := serializeHeight(height)

	unlockingScript := make([]byte, 0, 1+len(heightBytes)+len(arbitraryText))
	unlockingScript = append(unlockingScript, byte(len(heightBytes)))
	unlockingScript = append(unlockingScript, heightBytes...)
	unlockingScript = append(unlockingScript, arbitraryText...)

	if len(unlockingScript) < 2 {
		// consensus needs at least two bytes
		unlockingScript = append(unlockingScript, 0x00)
	}

	if len(unlockingScript) > maxCoinbaseScriptLen {
		return nil, errors.NewInvalidArgumentError("coinbase script too long: %d bytes", len(unlockingScript))
	}

	lockingScript := &bscript.Script{}
	_ = lockingScript.AppendOpcodes(bscript.OpDUP, bscript.OpHASH160)
	_ = lockingScript.AppendPushData(pubKeyHash)
	_ = lockingScript.AppendOpcodes(bscript.OpEQUALVERIFY, bscript.OpCHECKSIG)

	raw := BuildRawTx(1,
		[]RawInput{{PreviousIndex: 0xffffffff, UnlockingScript: unlockingScript, Sequence: 0xffffffff}},
		[]*bt.Output{{Satoshis: value, LockingScript: lockingScript}},
		0,
	)

	coinbaseTx, err := bt.NewTxFromBytes(raw)
	if err != nil {
		return nil, errors.NewProcessingError("error decoding coinbase transaction", err)
	}

	return coinbaseTx, nil
}

// DecodePubKeyHash decodes the hex miner pubkey hash the coinbase pays to.
func DecodePubKeyHash(pubKeyHashHex string) ([]byte, error) {
	pkh, err := hex.DecodeString(pubKeyHashHex)
	if err != nil {
		return nil, errors.NewConfigurationError("invalid miner pubkey hash %q", pubKeyHashHex, err)
	}

	if len(pkh) != 20 {
		return nil, errors.NewConfigurationError("miner pubkey hash must be 20 bytes, got %d", len(pkh))
	}

	return pkh, nil
}

func ExtractCoinbaseHeight(coinbaseTx *bt.Tx) (uint32, error) {
	if coinbaseTx == nil || len(coinbaseTx.Inputs) == 0 || coinbaseTx.Inputs[0].UnlockingScript == nil {
		return 0, errors.NewBlockInvalidError("coinbase has no unlocking script")
	}

	sigScript := *coinbaseTx.Inputs[0].UnlockingScript
	if len(sigScript) < 1 {
		return 0, errors.NewBlockInvalidError("the coinbase signature script must start with the length of the serialized block height")
	}

	serializedLen := int(sigScript[0])
	if serializedLen > 8 || len(sigScript[1:]) < serializedLen {
		return 0, errors.NewBlockInvalidError("the coinbase signature script must start with the serialized block height")
	}

	heightBytes := make([]byte, 8)
	copy(heightBytes, sigScript[1:serializedLen+1])

	return uint32(binary.LittleEndian.Uint64(heightBytes)), nil //nolint:gosec
}

// serializeHeight is the minimal little-endian script number encoding of height.
func serializeHeight(height uint32) []byte {
	var b []byte

	for h := height; h > 0; h >>= 8 {
		b = append(b, byte(h))
	}

	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		b = append(b, 0x00)
	}

	return b
}

type RawInput struct {
	PreviousTxID    chainhash.Hash
	PreviousIndex   uint32
	UnlockingScript []byte
	Sequence        uint32
}

// BuildRawTx serializes a transaction in the standard wire encoding.
func BuildRawTx(version uint32, inputs []RawInput, outputs []*bt.Output, lockTime uint32) []byte {
	buf := &bytes.Buffer{}

	_ = binary.Write(buf, binary.LittleEndian, version)

	_ = wire.WriteVarInt(buf, 0, uint64(len(inputs)))
	for _, in := range inputs {
		buf.Write(in.PreviousTxID[:])
		_ = binary.Write(buf, binary.LittleEndian, in.PreviousIndex)
		_ = wire.WriteVarBytes(buf, 0, in.UnlockingScript)
		_ = binary.Write(buf, binary.LittleEndian, in.Sequence)
	}

	_ = wire.WriteVarInt(buf, 0, uint64(len(outputs)))
	for _, out := range outputs {
		_ = binary.Write(buf, binary.LittleEndian, out.Satoshis)

		var script []byte
		if out.LockingScript != nil {
			script = *out.LockingScript
		}

		_ = wire.WriteVarBytes(buf, 0, script)
	}

	_ = binary.Write(buf, binary.LittleEndian, lockTime)

	return buf.Bytes()
}
