package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalogseed/pkg/database"
)

func TestMigrations_Paired(t *testing.T) {
	ups, err := database.PendingMigrations(FS)
	require.NoError(t, err)
	require.Equal(t, []string{"001_reference.up.sql", "002_catalog.up.sql", "003_products.up.sql"}, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(FS, down)
		assert.NoError(t, err, "missing %s", down)
	}
}

func TestMigrations_TranslationTablesAreUnique(t *testing.T) {
	ups, err := database.PendingMigrations(FS)
	require.NoError(t, err)

	for _, up := range ups {
		content, err := fs.ReadFile(FS, up)
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(content), ";") {
			if !strings.Contains(stmt, "_translations (") {
				continue
			}
			assert.Contains(t, stmt, "locale", up)
			assert.Contains(t, stmt, "ON DELETE CASCADE", up)
			assert.Contains(t, stmt, ", locale)", up)
		}
	}
}
