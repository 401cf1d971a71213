// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !sqlite_fts5

package rank

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/omnithink/pkg/types"
)

func TestNewFTSWithoutModule(t *testing.T) {
	_, err := New(types.RankerFTS)
	var cfgErr *types.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "err = %v", err)
	assert.Equal(t, "article.ranker", cfgErr.Field)
	assert.Contains(t, cfgErr.Detail, "sqlite_fts5")
}
