package netutil

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalIPIsValid(t *testing.T) {
	ip := LocalIP()
	assert.NotNil(t, net.ParseIP(ip), "LocalIP returned %q, not a valid address", ip)
}
