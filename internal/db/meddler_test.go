package db

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

type hexRow struct {
	ID      int64           `meddler:"id,pk"`
	Address common.Address  `meddler:"address,address"`
	Owner   *common.Address `meddler:"owner,address"`
	TxHash  common.Hash     `meddler:"tx_hash,hash"`
}

func TestHexMeddlers(t *testing.T) {
	sqlDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "meddler.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = sqlDB.Exec(`CREATE TABLE rows (id INTEGER PRIMARY KEY, address TEXT, owner TEXT, tx_hash TEXT)`)
	require.NoError(t, err)

	owner := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	with := &hexRow{
		Address: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
		Owner:   &owner,
		TxHash:  common.HexToHash("0xabc"),
	}
	without := &hexRow{Address: common.HexToAddress("0x01")}

	require.NoError(t, meddler.Insert(sqlDB, "rows", with))
	require.NoError(t, meddler.Insert(sqlDB, "rows", without))

	var got hexRow
	require.NoError(t, meddler.Load(sqlDB, "rows", &got, with.ID))
	require.Equal(t, *with, got)

	var gotNil hexRow
	require.NoError(t, meddler.Load(sqlDB, "rows", &gotNil, without.ID))
	require.Nil(t, gotNil.Owner)
	require.Equal(t, without.Address, gotNil.Address)
}
