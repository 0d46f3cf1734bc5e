package client

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	coreerrors "speedtest-core/internal/core/errors"
)

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"tcp only", Params{PayloadSize: 1, TCPConnections: 1}, false},
		{"udp only", Params{PayloadSize: 1 << 30, UDPConnections: 4}, false},
		{"both", Params{PayloadSize: 10, TCPConnections: 2, UDPConnections: 2}, false},
		{"zero size", Params{TCPConnections: 1}, true},
		{"negative tcp", Params{PayloadSize: 10, TCPConnections: -1, UDPConnections: 1}, true},
		{"negative udp", Params{PayloadSize: 10, UDPConnections: -2}, true},
		{"no connections", Params{PayloadSize: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, coreerrors.IsCode(err, coreerrors.CodeInvalidConfig), "got %v", err)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting_offer", StateAwaitingOffer.String())
	assert.Equal(t, "running_test", StateRunningTest.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestEndpoint_Addresses(t *testing.T) {
	ep := Endpoint{IP: net.IPv4(10, 0, 0, 7), UDPPort: 4000, TCPPort: 5000}
	assert.Equal(t, "10.0.0.7:5000", ep.TCPAddr())
	assert.Equal(t, "10.0.0.7:4000", ep.UDPAddr().String())
	assert.Equal(t, "10.0.0.7", ep.String())
}
