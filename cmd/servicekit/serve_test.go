package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/deppfellow/servicekit/internal/server"
	"github.com/stretchr/testify/assert"
)

func TestListenResult(t *testing.T) {
	lateServe := fmt.Errorf("%w: cannot move from closed to listening", server.ErrInvalidState)
	portTaken := errors.New("failed to listen on port 8080: address already in use")

	tests := []struct {
		name    string
		err     error
		state   server.State
		wantErr error
	}{
		{name: "clean stop", err: nil, state: server.StateClosed},
		{name: "serve after shutdown", err: lateServe, state: server.StateClosed},
		{name: "serve out of order while running", err: lateServe, state: server.StateListening, wantErr: lateServe},
		{name: "listen failure", err: portTaken, state: server.StateClosed, wantErr: portTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := listenResult(tt.err, tt.state)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
