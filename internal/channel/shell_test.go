package channel_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dumpshift/internal/channel"
	"github.com/tigerroll/dumpshift/pkg/batch/support/util/exception"
)

type recordedCall struct {
	argv  []string
	stdin string
}

func recordingRunner(calls *[]recordedCall, res *channel.Result) channel.Runner {
	return func(_ context.Context, argv []string, stdin io.Reader) (*channel.Result, error) {
		call := recordedCall{argv: argv}
		if stdin != nil {
			b, err := io.ReadAll(stdin)
			if err != nil {
				return nil, err
			}
			call.stdin = string(b)
		}
		*calls = append(*calls, call)
		return res, nil
	}
}

func TestShellChannel_DefaultArgv(t *testing.T) {
	ch, err := channel.NewShellChannel(channel.NewShellConfig())
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"docker", "exec", "-i", "postgresSQL2", "psql", "-U", "postgres", "-d", "ElemenBarber", "-f", "-"},
		ch.ScriptArgs())
	assert.Equal(t,
		[]string{"docker", "exec", "postgresSQL2", "psql", "-U", "postgres", "-d", "ElemenBarber", "-c", "SELECT 'a; b'"},
		ch.QueryArgs("SELECT 'a; b'"))
}

func TestShellChannel_NoEnvironmentRunsClientDirectly(t *testing.T) {
	cfg := channel.NewShellConfig()
	cfg.Environment = ""
	ch, err := channel.NewShellChannel(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"psql", "-U", "postgres", "-d", "ElemenBarber", "-f", "-"}, ch.ScriptArgs())
}

func TestShellChannel_CommandOverride(t *testing.T) {
	cfg := channel.NewShellConfig()
	cfg.Command = `podman exec -i "pg 16"`
	ch, err := channel.NewShellChannel(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"podman", "exec", "-i", "pg 16", "psql", "-U", "postgres", "-d", "ElemenBarber", "-c", "SELECT 1"}, ch.QueryArgs("SELECT 1"))

	cfg.Command = `docker exec "unterminated`
	_, err = channel.NewShellChannel(cfg)
	assert.Error(t, err)
}

func TestShellChannel_ExecScriptFeedsStdin(t *testing.T) {
	var calls []recordedCall
	ch, err := channel.NewShellChannel(channel.NewShellConfig(),
		channel.WithRunner(recordingRunner(&calls, &channel.Result{Stdout: "INSERT 0 2\n"})))
	require.NoError(t, err)

	res, err := ch.ExecScript(context.Background(), strings.NewReader(`INSERT INTO "usuario" VALUES (1);`))
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "INSERT 0 2\n", res.Stdout)
	require.Len(t, calls, 1)
	assert.Equal(t, `INSERT INTO "usuario" VALUES (1);`, calls[0].stdin)
	assert.Equal(t, "shell", ch.Name())
	assert.NoError(t, ch.Close())
}

func TestShellChannel_NonZeroExit(t *testing.T) {
	var calls []recordedCall
	ch, err := channel.NewShellChannel(channel.NewShellConfig(),
		channel.WithRunner(recordingRunner(&calls, &channel.Result{ExitCode: 3, Stderr: "ERROR:  relation \"cita\" does not exist\n"})))
	require.NoError(t, err)

	res, err := ch.Query(context.Background(), "SELECT COUNT(*) FROM cita")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, errors.Is(err, exception.ErrChannelExecution))
	assert.Contains(t, exception.ExtractErrorMessage(err), `relation "cita" does not exist`)
}

func TestShellChannel_RealProcess(t *testing.T) {
	cfg := channel.NewShellConfig()
	cfg.Command = `sh -c 'cat; echo "bad row" >&2; exit 2' sh`

	ch, err := channel.NewShellChannel(cfg)
	require.NoError(t, err)

	res, err := ch.ExecScript(context.Background(), strings.NewReader("SELECT 1;"))
	require.Error(t, err)
	assert.Equal(t, 2, res.ExitCode)
	assert.Equal(t, "SELECT 1;", res.Stdout)
	assert.Equal(t, "bad row\n", res.Stderr)
	assert.True(t, errors.Is(err, exception.ErrChannelExecution))
}

func TestShellChannel_MissingBinary(t *testing.T) {
	cfg := channel.NewShellConfig()
	cfg.Command = "dumpshift-no-such-binary-xyz"

	ch, err := channel.NewShellChannel(cfg)
	require.NoError(t, err)

	res, err := ch.Query(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.False(t, errors.Is(err, exception.ErrChannelExecution))
	assert.Contains(t, err.Error(), "cannot run dumpshift-no-such-binary-xyz")
}
