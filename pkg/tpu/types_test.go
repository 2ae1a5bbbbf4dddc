package tpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eoerrors "github.com/erfanzar/eopod/errors"
)

func TestParseWorker(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "all", want: WorkerAll},
		{in: "0", want: "0"},
		{in: "7", want: "7"},
		{in: "-1", wantErr: true},
		{in: "one", wantErr: true},
		{in: "", wantErr: true},
		{in: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWorker(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, eoerrors.ErrInvalidInput, eoerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
