package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ai-travel-planner/internal/config"
	"github.com/iliyamo/ai-travel-planner/internal/registry"
	"github.com/iliyamo/ai-travel-planner/internal/utils"
)

func TestNewRegistry(t *testing.T) {
	r, err := newRegistry(config.Registry{Backend: config.RegistryMemory}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &registry.Memory{}, r)

	r, err = newRegistry(config.Registry{Backend: config.RegistryMySQL}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &registry.MySQL{}, r)

	_, err = newRegistry(config.Registry{Backend: config.RegistryRedis}, nil, nil)
	assert.Error(t, err)
}

func TestNewHasher(t *testing.T) {
	assert.IsType(t, utils.LegacySHA256Hasher{}, newHasher(config.Password{Scheme: config.PasswordSHA256}))
	assert.IsType(t, utils.BcryptHasher{}, newHasher(config.Password{Scheme: config.PasswordBcrypt, BcryptCost: 4}))
}
