package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcg_inventory_v1/internal/model"
)

func TestInitDB_SQLite(t *testing.T) {
	db, err := InitDB(Options{Driver: DriverSQLite, DSN: ":memory:"}, &model.PendingItem{}, &model.TaxonomySnapshot{})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&model.PendingItem{}))
	assert.True(t, db.Migrator().HasTable(&model.TaxonomySnapshot{}))
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB(Options{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}
