// AngelaMos | 2026
// redis_test.go

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamisam/codeplay-backend/internal/config"
)

func TestRedis_Namespace(t *testing.T) {
	r := &Redis{namespace: "codeplay"}
	assert.Equal(t, "codeplay:judging:", r.Namespace("judging"))
	assert.Equal(t, "codeplay:ratelimit:submit:", r.Namespace("ratelimit", "submit"))

	bare := &Redis{}
	assert.Equal(t, "judging:", bare.Namespace("judging"))
}

func TestNewRedis_BadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), config.RedisConfig{URL: "not a url"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis url")
}
