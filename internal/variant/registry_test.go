package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
)

var (
	dictRoot  = Position{Kind: models.DocDictionaries, Slot: SlotRoot}
	dictProp  = Position{Kind: models.DocDictionaries, Slot: SlotProperty}
	typeItems = Position{Kind: models.DocTypes, Slot: SlotItems}
	typeProp  = Position{Kind: models.DocTypes, Slot: SlotProperty}
)

func TestLegalTargets(t *testing.T) {
	assert.Equal(t, []models.Kind{models.KindObject, models.KindArray, models.KindOneOf}, LegalTargets(dictRoot))
	assert.NotContains(t, LegalTargets(typeItems), models.KindSimple)
	assert.NotContains(t, LegalTargets(typeItems), models.KindComplex)
	assert.Contains(t, LegalTargets(typeProp), models.KindComplex)
	assert.NotContains(t, LegalTargets(dictProp), models.KindSimple)
	assert.Empty(t, LegalTargets(Position{Kind: models.DocEnumerators, Slot: SlotRoot}))
}

func TestLegalTargetsReturnsCopy(t *testing.T) {
	got := LegalTargets(dictRoot)
	got[0] = models.KindVoid
	assert.Equal(t, models.KindObject, LegalTargets(dictRoot)[0])
}

func TestChangeVariantClearsPreviousPayload(t *testing.T) {
	node := models.NewNode("keep me", Default(models.KindObject))
	node.Required = true
	node.Properties().Set("a", models.NewNode("", nil))

	require.NoError(t, ChangeVariant(node, models.KindArray, dictProp))
	assert.Nil(t, node.Properties())
	require.NotNil(t, node.Items())
	assert.Equal(t, "Array item", node.Items().Description)
	assert.Equal(t, models.KindCustom, node.Items().Kind())
	assert.Equal(t, "keep me", node.Description)
	assert.True(t, node.Required)
}

func TestChangeVariantIdempotent(t *testing.T) {
	node := models.NewNode("", Default(models.KindObject))
	node.Properties().Set("a", models.NewNode("", nil))

	require.NoError(t, ChangeVariant(node, models.KindObject, dictProp))
	require.NoError(t, ChangeVariant(node, models.KindObject, dictProp))
	assert.Equal(t, []string{"a"}, node.Properties().Keys())
}

func TestChangeVariantRejectsIllegalKind(t *testing.T) {
	node := models.NewNode("", &models.RefVariant{Target: "other"})
	err := ChangeVariant(node, models.KindSimple, typeItems)
	assert.ErrorIs(t, err, apperr.ErrInvalidVariantTransition)
	assert.Equal(t, &models.RefVariant{Target: "other"}, node.Variant)

	err = ChangeVariant(node, models.KindVoid, dictRoot)
	assert.ErrorIs(t, err, apperr.ErrInvalidVariantTransition)
}

func TestDefaultComplex(t *testing.T) {
	cv, ok := Default(models.KindComplex).(*models.ComplexVariant)
	require.True(t, ok)
	assert.Equal(t, "string", cv.JSONSchema.(map[string]any)["type"])
	assert.Equal(t, DefaultMaxLength, cv.BSONSchema.(map[string]any)["maxLength"])
}

func TestDefaultRoot(t *testing.T) {
	assert.Equal(t, models.KindObject, DefaultRoot(models.DocDictionaries).Kind())
	assert.Equal(t, models.KindVoid, DefaultRoot(models.DocTypes).Kind())
}
