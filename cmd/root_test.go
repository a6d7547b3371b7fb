package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/auth"
	"quill/db"
	"quill/models"
	"quill/store"
)

type cliFixture struct {
	dir    string
	dbPath string
}

func newCliFixture(t *testing.T) *cliFixture {
	t.Helper()
	dir := t.TempDir()
	return &cliFixture{dir: dir, dbPath: filepath.Join(dir, "quill.db")}
}

// run executes the app with the fixture's database and the given admin token
func (f *cliFixture) run(t *testing.T, adminToken string, args ...string) error {
	t.Helper()
	base := []string{
		"quill",
		"--config", filepath.Join(f.dir, "missing.toml"),
		"--log-level", "error",
		"--backend", "sqlite",
		"--database", f.dbPath,
		"--admin-token", adminToken,
	}
	return RootApp().Run(append(base, args...))
}

func (f *cliFixture) posts(t *testing.T) []models.Post {
	t.Helper()
	slots, err := db.NewSQLiteSlots(f.dbPath)
	require.NoError(t, err)
	defer slots.Close()
	return store.New(slots).List(context.Background())
}

func TestPostLifecycle(t *testing.T) {
	f := newCliFixture(t)

	require.NoError(t, f.run(t, "t0k", "posts", "create", "--token", "t0k",
		"--title", "  Hello  ", "--content", "hello world!", "--date", "2024-01-01T00:00:00.000Z"))

	posts := f.posts(t)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0].Title)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", posts[0].Date)
	id := posts[0].Id

	require.NoError(t, f.run(t, "t0k", "posts", "update", "--token", "t0k",
		"--title", "Hello again", "--content", "hello world, again!", id))
	posts = f.posts(t)
	require.Len(t, posts, 1)
	assert.Equal(t, id, posts[0].Id)
	assert.Equal(t, "Hello again", posts[0].Title)

	require.NoError(t, f.run(t, "t0k", "posts", "show", id))
	require.NoError(t, f.run(t, "t0k", "posts", "list", "--json"))

	require.NoError(t, f.run(t, "t0k", "posts", "delete", "--token", "t0k", id))
	assert.Empty(t, f.posts(t))

	assert.Error(t, f.run(t, "t0k", "posts", "delete", "--token", "t0k", id), "deleting twice reports not found")
	assert.Error(t, f.run(t, "t0k", "posts", "show", id))
}

func TestMutationsNeedAdminToken(t *testing.T) {
	f := newCliFixture(t)
	create := []string{"posts", "create", "--title", "Hello", "--content", "hello world!"}

	err := f.run(t, "", append(create, "--token", "anything")...)
	assert.ErrorIs(t, err, auth.ErrNotConfigured)

	err = f.run(t, "t0k", append(create, "--token", "wrong")...)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	assert.Empty(t, f.posts(t))
}

func TestInvalidInputIsRejected(t *testing.T) {
	f := newCliFixture(t)

	err := f.run(t, "t0k", "posts", "create", "--token", "t0k", "--title", "Hi", "--content", "hello world!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Title must be at least 3 characters long.")

	assert.Empty(t, f.posts(t))
}

func TestLoginRemembersToken(t *testing.T) {
	f := newCliFixture(t)

	assert.ErrorIs(t, f.run(t, "t0k", "login", "--token", "wrong"), auth.ErrInvalidToken)
	require.NoError(t, f.run(t, "t0k", "login", "--token", "t0k"))

	// No --token needed once logged in
	require.NoError(t, f.run(t, "t0k", "posts", "create", "--title", "Hello", "--content", "hello world!"))
	assert.Len(t, f.posts(t), 1)

	require.NoError(t, f.run(t, "t0k", "logout"))
}

func TestExportImportAndTidy(t *testing.T) {
	f := newCliFixture(t)

	require.NoError(t, f.run(t, "t0k", "posts", "create", "--token", "t0k",
		"--title", "Ancient", "--content", "written long ago", "--date", "2001-01-01T00:00:00.000Z"))
	require.NoError(t, f.run(t, "t0k", "posts", "create", "--token", "t0k",
		"--title", "Fresh", "--content", "written just now"))

	exported := filepath.Join(f.dir, "posts.json")
	require.NoError(t, f.run(t, "t0k", "export", "--output", exported))
	raw, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Ancient")

	require.NoError(t, f.run(t, "t0k", "tidy", "--token", "t0k", "--days", "30"))
	posts := f.posts(t)
	require.Len(t, posts, 1)
	assert.Equal(t, "Fresh", posts[0].Title)

	require.NoError(t, f.run(t, "t0k", "import", "--token", "t0k", exported))
	assert.Len(t, f.posts(t), 2)

	bad := filepath.Join(f.dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"id":"","title":"x"}]`), 0o644))
	assert.ErrorIs(t, f.run(t, "t0k", "import", "--token", "t0k", bad), store.ErrInvalidImport)
	assert.Len(t, f.posts(t), 2)
}

func TestMigrateAndRollback(t *testing.T) {
	f := newCliFixture(t)

	require.NoError(t, f.run(t, "", "migrate"))
	require.NoError(t, f.run(t, "", "rollback"))
	require.NoError(t, f.run(t, "", "migrate"))
}
