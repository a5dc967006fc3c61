package schemas

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSchemaFiles_ValidJSON(t *testing.T) {
	schemaFiles := []string{
		"rankings_unit.schema.json",
		"tournaments_unit.schema.json",
	}

	for _, schemaFile := range schemaFiles {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := fs.ReadFile(FS, schemaFile)
			require.NoError(t, err, "schema should be embedded")

			var v map[string]interface{}
			err = json.Unmarshal(data, &v)
			require.NoError(t, err, "schema file should be valid JSON: %s", schemaFile)

			assert.Equal(t, "object", v["type"])
			assert.Contains(t, v, "required")
		})
	}
}
