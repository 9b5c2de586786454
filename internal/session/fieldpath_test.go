package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFieldCreatesNestedContainers(t *testing.T) {
	data := make(map[string]any)

	WriteField(data, "order.stage", "stage1")

	order, ok := data["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "stage1", order["stage"])
}

func TestWriteFieldPreservesSiblings(t *testing.T) {
	data := make(map[string]any)

	WriteField(data, "order.stage", "stage1")
	WriteField(data, "order.city", "Москва")

	order := data["order"].(map[string]any)
	assert.Equal(t, "stage1", order["stage"])
	assert.Equal(t, "Москва", order["city"])
}

func TestWriteFieldOverwritesScalarIntermediate(t *testing.T) {
	data := map[string]any{"order": "oops"}

	WriteField(data, "order.stage", "stage1")

	order, ok := data["order"].(map[string]any)
	require.True(t, ok, "scalar at intermediate segment must be replaced with a map")
	assert.Equal(t, "stage1", order["stage"])
}

func TestWriteFieldTopLevel(t *testing.T) {
	data := make(map[string]any)

	WriteField(data, "name", "Al")

	assert.Equal(t, "Al", data["name"])
}

func TestToggleFieldSymmetricDifference(t *testing.T) {
	data := make(map[string]any)

	ToggleField(data, "tags", "x")
	assert.Equal(t, []any{"x"}, data["tags"])

	ToggleField(data, "tags", "y")
	assert.Equal(t, []any{"x", "y"}, data["tags"])

	ToggleField(data, "tags", "x")
	assert.Equal(t, []any{"y"}, data["tags"])
}

func TestToggleFieldTwiceIsIdentity(t *testing.T) {
	data := make(map[string]any)

	ToggleField(data, "tags", "x")
	ToggleField(data, "tags", "x")

	assert.Equal(t, []any{}, data["tags"])
}

func TestToggleFieldDottedPath(t *testing.T) {
	data := make(map[string]any)

	ToggleField(data, "order.options", "egr_off")

	order := data["order"].(map[string]any)
	assert.Equal(t, []any{"egr_off"}, order["options"])

	ToggleField(data, "order.options", "egr_off")
	assert.Equal(t, []any{}, order["options"])
}
