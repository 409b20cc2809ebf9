package chain

// Deployment holds the protocol contract addresses on one chain.
type Deployment struct {
	JuiceDollar string // mint token (JUSD)
	Equity      string // pool-share token (JUICE)
}

// Chain describes a supported network.
type Chain struct {
	ID         int64
	Name       string
	Deployment Deployment
}

var (
	Mainnet = Chain{
		ID:   1,
		Name: "Ethereum",
		Deployment: Deployment{
			JuiceDollar: "0x8d1019a907e7e2c0a10408a3d8021a0bb0a2d7c5",
			Equity:      "0x3edb3e2a2d81a9a3d5b0e1c041a3bcd1b4bb7c0e",
		},
	}
	Testnet = Chain{
		ID:   5115,
		Name: "Testnet",
		Deployment: Deployment{
			JuiceDollar: "0x6f2b1a84d8a7c701f5dcdeefbc44f55b0bcd5a21",
			Equity:      "0x2f5f8f3dab1a86d1b16a3a390f06b4f1715a7a0d",
		},
	}
)

// ByName resolves "mainnet" or "testnet"; anything else defaults to testnet.
func ByName(name string) Chain {
	if name == "mainnet" {
		return Mainnet
	}
	return Testnet
}
