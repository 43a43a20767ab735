package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/csi-attendance-api/pkg/config"
)

func TestAddrs(t *testing.T) {
	assert.Equal(t, []string{"localhost:6379"}, addrs(config.RedisConfig{Host: "localhost", Port: 6379}))
	assert.Equal(t,
		[]string{"r1:6379", "r2:7000"},
		addrs(config.RedisConfig{Host: "r1, r2:7000,", Port: 6379}),
	)
}
