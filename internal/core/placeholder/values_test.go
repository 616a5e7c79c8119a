package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultValues_Replacements(t *testing.T) {
	r := DefaultValues().Replacements()

	assert.Len(t, r, 11)
	assert.Equal(t, DefaultCluster, r[KeyCluster])
	assert.Equal(t, DefaultWorkspace, r[KeyWorkspace])
	assert.Equal(t, DefaultEmail, r[KeyEmail])
	assert.Equal(t, DefaultMLRepo, r[KeyMLRepo])
	assert.Equal(t, DefaultStorageFQN, r[KeyStorageFQN])
	assert.Equal(t, DefaultVolume, r[KeyVolume])
	assert.Equal(t, DefaultBaseDomain, r[KeyBaseDomain])
	assert.Equal(t, DefaultHFToken, r[KeyHFToken])
	assert.Equal(t, DefaultSecretVal, r[KeySecretVal])
	assert.Equal(t, DefaultPasswordSecretFQN, r[KeyPasswordSecretFQN])
	assert.Equal(t, DefaultSSHPublicKey, r[KeySSHPublicKey])
}

func TestValues_Replacements_Overrides(t *testing.T) {
	v := DefaultValues()
	v.Cluster = "prod"
	v.Volume = ""

	r := v.Replacements()
	assert.Equal(t, "prod", r[KeyCluster])
	assert.Contains(t, r, KeyVolume)
	assert.Equal(t, "", r[KeyVolume])
}

func TestIsSecret(t *testing.T) {
	assert.True(t, IsSecret(KeyHFToken))
	assert.True(t, IsSecret(KeySecretVal))
	assert.False(t, IsSecret(KeyCluster))
	assert.False(t, IsSecret(KeyPasswordSecretFQN))
}
