package main

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/librevsplit-go/distributor"
	"github.com/bitfsorg/librevsplit-go/factory"
)

const (
	factoryAddr = "0xfafafafafafafafafafafafafafafafafafafafa"
	ownerAddr   = "0x0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f0f"
	templAddr   = "0x7e7e7e7e7e7e7e7e7e7e7e7e7e7e7e7e7e7e7e7e"
	walletAddr  = "0xfefefefefefefefefefefefefefefefefefefefe"
	deployer    = "0xc1c1c1c1c1c1c1c1c1c1c1c1c1c1c1c1c1c1c1c1"
	controller  = "0x0202020202020202020202020202020202020202"
	distAddr    = "0x0303030303030303030303030303030303030303"
	r1          = "0xa1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1a1"
	r2          = "0xa2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a2a2"
	payer       = "0xb0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0"
)

func execute(dataDir string, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--datadir", dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func run(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := execute(dataDir, args...)
	require.NoError(t, err, "revsplit %s", strings.Join(args, " "))
	return strings.TrimSpace(out)
}

func initFactory(t *testing.T, dataDir string) {
	t.Helper()
	out := run(t, dataDir, "init",
		"--address", factoryAddr, "--owner", ownerAddr, "--template", templAddr,
		"--wallet", walletAddr, "--fee", "100000")
	assert.True(t, strings.EqualFold(factoryAddr, out))
}

func createInstance(t *testing.T, dataDir string, extra ...string) string {
	t.Helper()
	args := append([]string{"create",
		"--caller", deployer, "--controller", controller, "--distributors", distAddr,
		"--recipients", r1 + "," + r2, "--percentages", "6000000,4000000"}, extra...)
	return run(t, dataDir, args...)
}

func TestCLI_NativeDistributionPersists(t *testing.T) {
	dir := t.TempDir()
	initFactory(t, dir)
	inst := createInstance(t, dir)

	run(t, dir, "fund", "--to", inst, "--amount", "1000000000")
	run(t, dir, "distribute", "--instance", inst, "--caller", distAddr, "--amount", "1000000000")

	assert.Equal(t, "594000000", run(t, dir, "balance", "--address", r1))
	assert.Equal(t, "396000000", run(t, dir, "balance", "--address", r2))
	assert.Equal(t, "10000000", run(t, dir, "balance", "--address", walletAddr))
	assert.Equal(t, "0", run(t, dir, "balance", "--address", inst))

	events := run(t, dir, "events", "--verify")
	assert.Contains(t, events, "InstanceCreated")
	assert.Contains(t, events, "NativeDistributed")
	assert.Contains(t, events, "verified")
}

func TestCLI_FailedOperationIsNotPersisted(t *testing.T) {
	dir := t.TempDir()
	initFactory(t, dir)
	inst := createInstance(t, dir)
	run(t, dir, "fund", "--to", inst, "--amount", "500")

	_, err := execute(dir, "distribute", "--instance", inst, "--caller", distAddr, "--amount", "500")
	assert.ErrorIs(t, err, distributor.ErrBalanceTooLow)

	_, err = execute(dir, "distribute", "--instance", inst, "--caller", controller, "--amount", "500")
	assert.ErrorIs(t, err, distributor.ErrUnauthorized)

	assert.Equal(t, "500", run(t, dir, "balance", "--address", inst))
	assert.NotContains(t, run(t, dir, "events"), "NativeDistributed")
}

func TestCLI_PredictMatchesDeterministicCreate(t *testing.T) {
	dir := t.TempDir()
	initFactory(t, dir)

	predicted := run(t, dir, "predict", "--deployer", deployer, "--controller", controller,
		"--recipients", r1, "--percentages", "10000000", "--creation-id", "launch")
	created := run(t, dir, "create", "--caller", deployer, "--controller", controller,
		"--recipients", r1, "--percentages", "10000000", "--creation-id", "launch")
	assert.Equal(t, predicted, created)

	_, err := execute(dir, "create", "--caller", deployer, "--controller", controller,
		"--recipients", r1, "--percentages", "10000000", "--creation-id", "launch")
	assert.ErrorIs(t, err, factory.ErrCloneCollision)
}

func TestCLI_DepositWithMetadataAutoDistributes(t *testing.T) {
	dir := t.TempDir()
	initFactory(t, dir)
	inst := createInstance(t, dir, "--auto", "--min-auto", "10000000")

	run(t, dir, "fund", "--to", payer, "--amount", "2000000000")
	run(t, dir, "deposit", "--instance", inst, "--from", payer, "--value", "1000000000", "--index", "0")
	assert.Equal(t, "594000000", run(t, dir, "balance", "--address", r1))

	run(t, dir, "deposit", "--instance", inst, "--from", payer, "--value", "1000000000")
	assert.Equal(t, "1000000000", run(t, dir, "balance", "--address", inst))
	assert.Equal(t, "0", run(t, dir, "balance", "--address", payer))
}

func TestCLI_SetRecipientsAndShow(t *testing.T) {
	dir := t.TempDir()
	initFactory(t, dir)
	inst := createInstance(t, dir)

	run(t, dir, "set-recipients", "--instance", inst, "--caller", controller,
		"--recipients", r2, "--percentages", "10000000", "--index", "3", "--freeze")

	out := run(t, dir, "show", "--instance", inst)
	assert.Contains(t, out, "immutable    true")
	assert.Contains(t, out, "index 3")

	_, err := execute(dir, "set-recipients", "--instance", inst, "--caller", controller,
		"--recipients", r1, "--percentages", "10000000")
	assert.ErrorIs(t, err, distributor.ErrImmutableRecipients)
}

func TestCLI_FactoryAdministration(t *testing.T) {
	dir := t.TempDir()
	initFactory(t, dir)

	_, err := execute(dir, "set-fee", "--caller", deployer, "--fee", "1")
	assert.ErrorIs(t, err, factory.ErrUnauthorized)

	run(t, dir, "set-fee", "--caller", ownerAddr, "--fee", "250000")
	run(t, dir, "set-wallet", "--caller", ownerAddr)

	out := run(t, dir, "show")
	assert.Contains(t, out, "platform fee 250000")
	assert.Contains(t, out, "wallet       0x0000000000000000000000000000000000000000")

	_, err = execute(dir, "init", "--address", factoryAddr, "--owner", ownerAddr, "--template", templAddr)
	assert.ErrorIs(t, err, errFactoryDeployed)
}

func TestCLI_RequiresFactory(t *testing.T) {
	_, err := execute(t.TempDir(), "show")
	assert.ErrorIs(t, err, errNoFactory)
}

func TestCLI_ConfigWriteThenLoad(t *testing.T) {
	dir := t.TempDir()
	path := run(t, dir, "config", "write")
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	out := run(t, dir, "config", "show")
	assert.Contains(t, out, dir)
}
