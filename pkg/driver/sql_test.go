package driver

import (
	"context"
	sqldriver "database/sql/driver"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/polybase/pkg/config"
	"github.com/ajitpratap0/polybase/pkg/errors"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection reset by peer" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.ErrorType
	}{
		{"bad connection", sqldriver.ErrBadConn, errors.ErrorTypeConnectionLost},
		{"deadline", context.DeadlineExceeded, errors.ErrorTypeTimeout},
		{"network failure", fakeNetError{}, errors.ErrorTypeConnectionLost},
		{"wrapped network failure", stderrors.Join(stderrors.New("exec"), fakeNetError{}), errors.ErrorTypeConnectionLost},
		{"anything else", stderrors.New("syntax error near SELECT"), errors.ErrorTypeStatement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "statement failed")
			assert.True(t, errors.IsType(got, tt.want), "got %v", got)
			assert.True(t, stderrors.Is(got, tt.err), "cause must survive classification")
		})
	}
}

func TestBuiltinDriversRegistered(t *testing.T) {
	for _, name := range []string{
		config.DriverSQLite,
		config.DriverMySQL,
		config.DriverPostgres,
		config.DriverSnowflake,
	} {
		d, err := Get(name)
		require.NoError(t, err, name)
		assert.NotNil(t, d)
	}

	_, err := Get("oracle")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
