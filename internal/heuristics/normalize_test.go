package heuristics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/solsecurity/pkg/models"
)

const testWallet = "ABCDwxyz1234"

func decodeRecords(t *testing.T, payload string) []models.RawTransaction {
	t.Helper()
	var records []models.RawTransaction
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	return records
}

func TestNormalizeTransfersUnitsAndOrder(t *testing.T) {
	records := decodeRecords(t, `[
		{
			"signature": "sig1",
			"timestamp": 1740830400,
			"nativeTransfers": [
				{"fromUserAccount": "abcdWXYZ1234", "toUserAccount": "WXYZ5678abcd", "amount": 10000000000000}
			],
			"tokenTransfers": [
				{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234", "tokenAmount": 0.005, "mint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"}
			]
		},
		{
			"signature": "sig2",
			"timestamp": 1740830700,
			"nativeTransfers": [
				{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234", "amount": 5000}
			]
		}
	]`)

	res := NormalizeTransfers(testWallet, records)
	require.Len(t, res.Transfers, 3)
	assert.Zero(t, res.Dropped)

	assert.Equal(t, "10000", res.Transfers[0].Amount.String())
	assert.Equal(t, models.AssetNative, res.Transfers[0].AssetClass)

	assert.Equal(t, "0.005", res.Transfers[1].Amount.String())
	assert.Equal(t, models.AssetToken, res.Transfers[1].AssetClass)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", res.Transfers[1].Mint)

	assert.Equal(t, "0.000005", res.Transfers[2].Amount.String())
	assert.Equal(t, "sig2", res.Transfers[2].Signature)
	assert.Equal(t, int64(1740830700), res.Transfers[2].Timestamp.Unix())
}

func TestNormalizeTransfersDropsMalformed(t *testing.T) {
	records := decodeRecords(t, `[
		{
			"signature": "sig1",
			"timestamp": 1740830400,
			"nativeTransfers": [
				{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234"},
				{"fromUserAccount": "", "toUserAccount": "ABCDwxyz1234", "amount": 5},
				{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234", "amount": "lots"},
				{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234", "amount": null},
				{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234", "amount": "2500"}
			],
			"tokenTransfers": [
				{"fromUserAccount": "WXYZ9999abcd", "toUserAccount": "ABCDwxyz1234", "mint": "m"}
			]
		}
	]`)

	res := NormalizeTransfers(testWallet, records)
	require.Len(t, res.Transfers, 1)
	assert.Equal(t, "0.0000025", res.Transfers[0].Amount.String())
	assert.Equal(t, 5, res.Dropped)
}

func TestNormalizeTransfersDiscardsUnrelated(t *testing.T) {
	records := decodeRecords(t, `[
		{
			"signature": "sig1",
			"timestamp": 1740830400,
			"nativeTransfers": [
				{"fromUserAccount": "Someone11111", "toUserAccount": "Someone22222", "amount": 1000}
			],
			"tokenTransfers": [
				{"fromUserAccount": "Someone11111", "toUserAccount": "Someone33333", "tokenAmount": 3, "mint": "m"}
			]
		}
	]`)

	res := NormalizeTransfers(testWallet, records)
	assert.Empty(t, res.Transfers)

	result := AnalyzeTransfers(testWallet, res.Transfers, Prefix4Strategy{})
	assert.Equal(t, models.OutcomeNoTransactions, result.Outcome)
	assert.Equal(t, MsgNoTransactions, result.Message)
}

func TestExtractRoles(t *testing.T) {
	transfers := []models.Transfer{
		nativeTransfer("a", "abcdwxyz1234", "Recipient111", "1", t0),
		nativeTransfer("b", testWallet, "recipient111", "2", t0),
		nativeTransfer("c", testWallet, "Recipient222", "3", t0),
		nativeTransfer("d", "Sender111111", testWallet, "4", t0),
	}

	senders, recipients := ExtractRoles(testWallet, transfers)
	assert.Equal(t, []string{"Recipient111", "Recipient222"}, recipients)
	require.Len(t, senders, 1)
	assert.Equal(t, "Sender111111", senders[0].Address)
	assert.Equal(t, "4", senders[0].Amount.String())
}
