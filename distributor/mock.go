package distributor

import "github.com/ethereum/go-ethereum/common"

// MockFeeWalletProvider is a test double for FeeWalletProvider.
type MockFeeWalletProvider struct {
	PlatformWalletFn func() common.Address
}

func (m *MockFeeWalletProvider) PlatformWallet() common.Address {
	return m.PlatformWalletFn()
}
