// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pdiddy/inspire-harvester/pkg/types"
)

func bulkErr(writeErrors ...mongo.BulkWriteError) error {
	return mongo.BulkWriteException{WriteErrors: writeErrors}
}

func writeError(index, code int, msg string) mongo.BulkWriteError {
	return mongo.BulkWriteError{
		WriteError: mongo.WriteError{Index: index, Code: code, Message: msg},
	}
}

func TestClassifyBulkError_AllDuplicates(t *testing.T) {
	docs := []types.Document{
		{"_id": "100"},
		{"_id": "200"},
		{"_id": "300"},
	}
	err := bulkErr(
		writeError(0, duplicateKeyCode, "E11000 duplicate key"),
		writeError(2, duplicateKeyCode, "E11000 duplicate key"),
	)

	dups, fatal := classifyBulkError(err, docs)
	require.NoError(t, fatal)
	assert.Equal(t, []string{"100", "300"}, dups)
}

func TestClassifyBulkError_NonDuplicateIsFatal(t *testing.T) {
	docs := []types.Document{{"_id": "100"}, {"_id": "200"}}
	err := bulkErr(
		writeError(0, duplicateKeyCode, "E11000 duplicate key"),
		writeError(1, 2, "BadValue"),
	)

	dups, fatal := classifyBulkError(err, docs)
	assert.ErrorIs(t, fatal, ErrWriteFailed)
	assert.ErrorContains(t, fatal, "BadValue")
	// Duplicates classified before the fatal error are still reported.
	assert.Equal(t, []string{"100"}, dups)
}

func TestClassifyBulkError_NonBulkError(t *testing.T) {
	_, fatal := classifyBulkError(fmt.Errorf("connection reset"), nil)
	assert.ErrorIs(t, fatal, ErrWriteFailed)
}

func TestClassifyBulkError_IndexOutOfRange(t *testing.T) {
	// A write error pointing outside the batch must not panic; the
	// duplicate is reported with an empty id.
	err := bulkErr(writeError(7, duplicateKeyCode, "E11000 duplicate key"))

	dups, fatal := classifyBulkError(err, []types.Document{{"_id": "100"}})
	require.NoError(t, fatal)
	assert.Equal(t, []string{""}, dups)
}
