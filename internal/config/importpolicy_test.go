package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSizeFallsBackToFlowerWeight(t *testing.T) {
	policy := DefaultImportPolicy()

	assert.Equal(t, "100mg", policy.DefaultSize("edible"))
	assert.Equal(t, "100mg", policy.DefaultSize(" Edible "))
	assert.Equal(t, "3.5g", policy.DefaultSize("unknown-category"))
}

func TestValidateImportPolicy(t *testing.T) {
	valid := DefaultImportPolicy()
	assert.NoError(t, validateImportPolicy(valid))

	badPolicy := valid
	badPolicy.SuccessPolicy = "optimistic"
	assert.Error(t, validateImportPolicy(badPolicy))

	badRange := valid
	badRange.InventoryMin = 10
	badRange.InventoryMax = 5
	assert.Error(t, validateImportPolicy(badRange))

	negativePrice := valid
	negativePrice.DefaultPrice = -1
	assert.Error(t, validateImportPolicy(negativePrice))
}

func TestApplyDefaultsKeepsConfiguredInventoryMin(t *testing.T) {
	cfg := ImportPolicy{InventoryMin: 10}
	applyPolicyDefaults(&cfg)

	assert.Equal(t, 10, cfg.InventoryMin)
	assert.Equal(t, DefaultImportPolicy().InventoryMax, cfg.InventoryMax)
	assert.NoError(t, validateImportPolicy(cfg))

	// A min above the defaulted max is surfaced, not silently reset.
	inverted := ImportPolicy{InventoryMin: 100}
	applyPolicyDefaults(&inverted)
	assert.Equal(t, 100, inverted.InventoryMin)
	assert.Error(t, validateImportPolicy(inverted))
}

func TestStaticHolderReturnsStoredPolicy(t *testing.T) {
	policy := DefaultImportPolicy()
	policy.SuccessPolicy = SuccessPolicyStrict

	holder := NewStaticImportPolicyHolder(policy)
	assert.Equal(t, SuccessPolicyStrict, holder.Get().SuccessPolicy)
}
