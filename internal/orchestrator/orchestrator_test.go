package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwayapp/crudkit/internal/config"
	"github.com/railwayapp/crudkit/internal/environment"
	"github.com/railwayapp/crudkit/internal/execx"
	"github.com/railwayapp/crudkit/internal/stack"
)

const composePrefix = "docker compose -f /srv/stack/docker-compose.yml -p crudstack --env-file .env "

func testProject() *stack.Project {
	return &stack.Project{
		Name:        "crudstack",
		ComposeFile: "/srv/stack/docker-compose.yml",
		WorkingDir:  "/srv/stack",
		Services: map[string]stack.ComposeService{
			"app":      {Name: "app", BuildContext: "/srv/stack", Dockerfile: "/srv/stack/Dockerfile"},
			"postgres": {Name: "postgres", Image: "postgres:16", Volumes: []string{"postgres_data"}},
			"mysql":    {Name: "mysql", Image: "mysql:8", Volumes: []string{"mysql_data"}},
			"mongo":    {Name: "mongo", Image: "mongo:7"},
		},
		Volumes: map[string]stack.Volume{
			"postgres_data": {Key: "postgres_data", Name: "crudstack_postgres_data"},
			"mysql_data":    {Key: "mysql_data", Name: "crudstack_mysql_data"},
		},
	}
}

func newTestOrchestrator(runner execx.Runner) *Orchestrator {
	env := environment.FromMap(map[string]string{"DB_TYPE": "mysql"})
	return New(runner, stack.NewRegistry(config.Default().Services), testProject(), Options{
		EnvFile: ".env",
		Env:     env,
		Base:    []string{"PATH=/usr/bin", "DB_TYPE=postgres"},
		Volumes: config.DefaultVolumes,
	})
}

func TestCommandLines(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		op   func(o *Orchestrator) error
		want []string
	}{
		{"build", func(o *Orchestrator) error { return o.Build(ctx) }, []string{"build --no-cache app"}},
		{"up", func(o *Orchestrator) error { return o.Up(ctx) }, []string{"up -d --build"}},
		{"down", func(o *Orchestrator) error { return o.Down(ctx) }, []string{"down --remove-orphans"}},
		{"disable mongo", func(o *Orchestrator) error { return o.Disable(ctx, stack.RoleMongo) }, []string{"rm --stop --force mongo"}},
		{"logs", func(o *Orchestrator) error {
			return o.Logs(ctx, LogsOptions{Follow: true, Tail: 50, Services: []string{"app"}})
		}, []string{"logs -f --tail 50 app"}},
		{"exec", func(o *Orchestrator) error {
			return o.Exec(ctx, "app", []string{"alembic", "upgrade", "head"}, ExecOptions{NoTTY: true})
		}, []string{"exec -T app alembic upgrade head"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := execx.NewRecorder()
			require.NoError(t, tt.op(newTestOrchestrator(rec)))

			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = composePrefix + w
			}
			assert.Equal(t, want, rec.Lines())
		})
	}
}

func TestCompose_PassesEnvironmentFileWins(t *testing.T) {
	rec := execx.NewRecorder()
	o := newTestOrchestrator(rec)
	require.NoError(t, o.Up(context.Background()))

	cmds := rec.Commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"PATH=/usr/bin", "DB_TYPE=mysql"}, cmds[0].Env)
	assert.Equal(t, environment.MySQL, o.DBType())
}

func TestUpThenDown_LeavesNothingRunning(t *testing.T) {
	rt := newFakeRuntime(testProject())
	o := newTestOrchestrator(rt)
	ctx := context.Background()

	require.NoError(t, o.Up(ctx))
	assert.Equal(t, 4, rt.runningCount())

	require.NoError(t, o.Down(ctx))
	assert.Equal(t, 0, rt.runningCount())

	statuses, err := o.Status(ctx)
	require.NoError(t, err)
	for _, st := range statuses {
		assert.Equal(t, StateStopped, st.State, st.Service.Name)
	}
}

func TestRestart_IsDownThenUp(t *testing.T) {
	ctx := context.Background()

	restart := execx.NewRecorder()
	require.NoError(t, newTestOrchestrator(restart).Restart(ctx))

	sequence := execx.NewRecorder()
	o := newTestOrchestrator(sequence)
	require.NoError(t, o.Down(ctx))
	require.NoError(t, o.Up(ctx))

	assert.Equal(t, sequence.Commands(), restart.Commands())
}

func TestRestart_StopsOnDownFailure(t *testing.T) {
	rec := execx.NewRecorder()
	rec.Respond = func(cmd execx.Cmd) (string, error) {
		return "", &execx.ExitError{Cmd: cmd.String(), Code: 2}
	}

	err := newTestOrchestrator(rec).Restart(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, execx.ExitCode(err))
	assert.Len(t, rec.Commands(), 1)
}

func TestDisable_LeavesOtherServicesAlone(t *testing.T) {
	for _, role := range []stack.Role{stack.RolePostgres, stack.RoleMySQL, stack.RoleMongo} {
		t.Run(string(role), func(t *testing.T) {
			rt := newFakeRuntime(testProject())
			o := newTestOrchestrator(rt)
			ctx := context.Background()
			require.NoError(t, o.Up(ctx))

			require.NoError(t, o.Disable(ctx, role))

			for _, svc := range o.Registry().All() {
				assert.Equal(t, svc.Role != role, rt.isRunning(svc.Name), svc.Name)
			}
		})
	}
}

func TestDisable_RejectsApp(t *testing.T) {
	rec := execx.NewRecorder()
	err := newTestOrchestrator(rec).Disable(context.Background(), stack.RoleApp)
	assert.True(t, errors.Is(err, stack.ErrUnknownService))
	assert.Empty(t, rec.Commands())
}

func TestDisable_UndefinedService(t *testing.T) {
	rec := execx.NewRecorder()
	o := newTestOrchestrator(rec)
	delete(o.Project().Services, "mongo")

	err := o.Disable(context.Background(), stack.RoleMongo)
	assert.True(t, errors.Is(err, stack.ErrUnknownService))
	assert.Empty(t, rec.Commands())
}

func TestClean_NoVolumesIsSuccess(t *testing.T) {
	rt := newFakeRuntime(testProject())
	o := newTestOrchestrator(rt)

	removed, err := o.Clean(context.Background())
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, []string{"docker volume ls --quiet"}, rt.commands)
}

func TestClean_RemovesExistingVolumes(t *testing.T) {
	rt := newFakeRuntime(testProject())
	o := newTestOrchestrator(rt)
	ctx := context.Background()
	require.NoError(t, o.Up(ctx))
	require.NoError(t, o.Down(ctx))

	removed, err := o.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"crudstack_postgres_data", "crudstack_mysql_data"}, removed)

	removed, err = o.Clean(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestLogs_InterruptIsCleanExit(t *testing.T) {
	rec := execx.NewRecorder()
	rec.Respond = func(cmd execx.Cmd) (string, error) {
		return "", fmt.Errorf("%s: %w", cmd, context.Canceled)
	}
	o := newTestOrchestrator(rec)

	require.NoError(t, o.Logs(context.Background(), LogsOptions{Follow: true}))
	require.Error(t, o.Logs(context.Background(), LogsOptions{}))
}

func TestLogs_UnknownService(t *testing.T) {
	rec := execx.NewRecorder()
	err := newTestOrchestrator(rec).Logs(context.Background(), LogsOptions{Services: []string{"redis"}})
	assert.True(t, errors.Is(err, stack.ErrUnknownService))
	assert.Empty(t, rec.Commands())
}

func TestExec_RequiresRunningService(t *testing.T) {
	rt := newFakeRuntime(testProject())
	o := newTestOrchestrator(rt)
	ctx := context.Background()

	err := o.Exec(ctx, "app", []string{"pytest"}, ExecOptions{NoTTY: true})
	assert.Equal(t, 1, execx.ExitCode(err))

	require.NoError(t, o.Up(ctx))
	require.NoError(t, o.Exec(ctx, "app", []string{"pytest"}, ExecOptions{NoTTY: true}))

	assert.Error(t, o.Exec(ctx, "app", nil, ExecOptions{}))
}

func TestStatus(t *testing.T) {
	rt := newFakeRuntime(testProject())
	o := newTestOrchestrator(rt)
	ctx := context.Background()
	require.NoError(t, o.Up(ctx))
	require.NoError(t, o.Disable(ctx, stack.RolePostgres))

	statuses, err := o.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	got := make(map[string]ServiceStatus)
	for _, st := range statuses {
		got[st.Service.Name] = st
	}
	assert.Equal(t, StateRunning, got["app"].State)
	assert.Equal(t, "crudstack-app-1", got["app"].Container)
	assert.Equal(t, StateStopped, got["postgres"].State)
	assert.Empty(t, got["postgres"].Container)
	assert.True(t, got["postgres"].Defined)
}

func TestParsePS(t *testing.T) {
	array := `[{"Name":"s-app-1","Service":"app","State":"running","Status":"Up"},{"Name":"s-mongo-1","Service":"mongo","State":"exited","Status":"Exited (0)"}]`
	lines := `{"Name":"s-app-1","Service":"app","State":"running","Status":"Up"}
{"Name":"s-mongo-1","Service":"mongo","State":"exited","Status":"Exited (0)"}
`
	for name, input := range map[string]string{"array": array, "lines": lines} {
		t.Run(name, func(t *testing.T) {
			entries, err := parsePS([]byte(input))
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Equal(t, "app", entries[0].Service)
			assert.Equal(t, "exited", entries[1].State)
		})
	}

	entries, err := parsePS([]byte("  \n"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = parsePS([]byte("not json"))
	assert.Error(t, err)
}
