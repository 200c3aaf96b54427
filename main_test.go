package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAddrs(t *testing.T) {
	assert.NoError(t, checkAddrs("", ""))
	assert.NoError(t, checkAddrs("", ":51102"))
	assert.NoError(t, checkAddrs("http://localhost:53001", ":51102"))
	assert.Error(t, checkAddrs("http://localhost:53001", ""))
}
