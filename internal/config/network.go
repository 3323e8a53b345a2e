package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Network is the per-network address book, selected once at startup.
type Network struct {
	Name string

	// Well-known tokens resolved without contract reads.
	WBTC common.Address
	USDC common.Address
	AUC  common.Address

	ACOFactory     common.Address
	ACOPoolFactory common.Address

	// Exchanges whose transactions carry swap provenance in calldata.
	ZRXExchange   common.Address
	ZRXV4Exchange common.Address
	Buyer         common.Address
	Writer        common.Address
	OTCV1         common.Address
	OTCV2         common.Address

	// PoolStartBlock is the pool factory deployment block. Options created
	// before it are never part of the active option set.
	PoolStartBlock uint64

	// Pool implementations configured through individual getters.
	PoolImplV1 common.Address
	PoolImplV2 common.Address
	PoolImplV3 common.Address
}

// Mainnet is the Ethereum mainnet address book.
func Mainnet() Network {
	return Network{
		Name:           "mainnet",
		WBTC:           common.HexToAddress("0x2260fac5e5542a773aa44fbcfedf7c193bc2c599"),
		USDC:           common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"),
		AUC:            common.HexToAddress("0xc12d099be31567add4e4e4d0d45691c3f58f5663"),
		ACOFactory:     common.HexToAddress("0x176b98ab38d1ae8ff3f30bf07f9b93e26f559c17"),
		ACOPoolFactory: common.HexToAddress("0xe28520ddb1b419ac37ecdbb2c0f97c8cf079ccc3"),
		ZRXExchange:    common.HexToAddress("0x61935cbdd02287b511119ddb11aeb42f1593b7ef"),
		ZRXV4Exchange:  common.HexToAddress("0xdef1c0ded9bec7f1a1670819833240f027b25eff"),
		Buyer:          common.HexToAddress("0xdd43b83af3bbf093d2c323f065a8169fd2e39265"),
		Writer:         common.HexToAddress("0xe7597f774fd0a15a617894dc39d45a28b97afa4f"),
		OTCV1:          common.HexToAddress("0x4e91baee70d392b74f40565bba451638aa777ff0"),
		OTCV2:          common.HexToAddress("0x7ebe3599ba37fd20dda884010d38e6dd75982d81"),
		PoolStartBlock: 11511139,
	}
}

// Kovan is the Kovan testnet address book.
func Kovan() Network {
	return Network{
		Name:           "kovan",
		WBTC:           common.HexToAddress("0x4000132b399b6c85e465b60c9d897b6745149fee"),
		USDC:           common.HexToAddress("0xe22da380ee6b445bb8273c81944adeb6e8450422"),
		AUC:            common.HexToAddress("0xa24cbf0e7596b3601b01045791a73897b39068e4"),
		ACOFactory:     common.HexToAddress("0x53661cec8d21b1c5f362b05f682070f3f6116c55"),
		ACOPoolFactory: common.HexToAddress("0xd5f37ae12385184752a9cecdbe57f12253c973b9"),
		ZRXExchange:    common.HexToAddress("0x4eacd0af335451709e1e7b570b8ea68edec8bc97"),
		ZRXV4Exchange:  common.HexToAddress("0xdef1c0ded9bec7f1a1670819833240f027b25eff"),
		Buyer:          common.HexToAddress("0x75761a6afa36c3a68c1803caa12228ae738df189"),
		Writer:         common.HexToAddress("0x436abbb990a73ea35cf9aafce581bb0db15f9e22"),
		OTCV1:          common.HexToAddress("0x17ee535ede5495c48116030f7e09c09c49ab03fc"),
		OTCV2:          common.HexToAddress("0xd81d59562f6564db5d31e9fb0ce7209d8977b83c"),
		PoolStartBlock: 22704460,
	}
}

// NetworkByName returns the built-in address book for name.
func NetworkByName(name string) (Network, error) {
	switch name {
	case "", "mainnet":
		return Mainnet(), nil
	case "kovan":
		return Kovan(), nil
	default:
		return Network{}, fmt.Errorf("config: unknown network %q", name)
	}
}

// PoolVersion returns 1, 2 or 3 for the legacy pool implementations and 0
// for any other implementation.
func (n Network) PoolVersion(impl common.Address) int {
	if impl == (common.Address{}) {
		return 0
	}
	switch impl {
	case n.PoolImplV1:
		return 1
	case n.PoolImplV2:
		return 2
	case n.PoolImplV3:
		return 3
	}
	return 0
}

// IsLegacyPool reports whether impl predates dynamic valuation.
func (n Network) IsLegacyPool(impl common.Address) bool {
	return n.PoolVersion(impl) != 0
}

// networkFile is the YAML shape of a network override file. Empty fields
// keep the built-in value.
type networkFile struct {
	WBTC           string `yaml:"wbtc"`
	USDC           string `yaml:"usdc"`
	AUC            string `yaml:"auc"`
	ACOFactory     string `yaml:"aco_factory"`
	ACOPoolFactory string `yaml:"aco_pool_factory"`
	ZRXExchange    string `yaml:"zrx_exchange"`
	ZRXV4Exchange  string `yaml:"zrx_v4_exchange"`
	Buyer          string `yaml:"buyer"`
	Writer         string `yaml:"writer"`
	OTCV1          string `yaml:"otc_v1"`
	OTCV2          string `yaml:"otc_v2"`
	PoolStartBlock uint64 `yaml:"pool_start_block"`
	PoolImplV1     string `yaml:"pool_impl_v1"`
	PoolImplV2     string `yaml:"pool_impl_v2"`
	PoolImplV3     string `yaml:"pool_impl_v3"`
}

// LoadNetworkFile applies the overrides in path to base.
func LoadNetworkFile(base Network, path string) (Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read network file: %w", err)
	}
	return ParseNetwork(base, data)
}

// ParseNetwork applies YAML overrides to base.
func ParseNetwork(base Network, data []byte) (Network, error) {
	var f networkFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, fmt.Errorf("parse network file: %w", err)
	}

	n := base
	fields := []struct {
		key string
		val string
		dst *common.Address
	}{
		{"wbtc", f.WBTC, &n.WBTC},
		{"usdc", f.USDC, &n.USDC},
		{"auc", f.AUC, &n.AUC},
		{"aco_factory", f.ACOFactory, &n.ACOFactory},
		{"aco_pool_factory", f.ACOPoolFactory, &n.ACOPoolFactory},
		{"zrx_exchange", f.ZRXExchange, &n.ZRXExchange},
		{"zrx_v4_exchange", f.ZRXV4Exchange, &n.ZRXV4Exchange},
		{"buyer", f.Buyer, &n.Buyer},
		{"writer", f.Writer, &n.Writer},
		{"otc_v1", f.OTCV1, &n.OTCV1},
		{"otc_v2", f.OTCV2, &n.OTCV2},
		{"pool_impl_v1", f.PoolImplV1, &n.PoolImplV1},
		{"pool_impl_v2", f.PoolImplV2, &n.PoolImplV2},
		{"pool_impl_v3", f.PoolImplV3, &n.PoolImplV3},
	}
	for _, fl := range fields {
		if fl.val == "" {
			continue
		}
		if !common.IsHexAddress(fl.val) {
			return base, fmt.Errorf("network file: %s: invalid address %q", fl.key, fl.val)
		}
		*fl.dst = common.HexToAddress(fl.val)
	}
	if f.PoolStartBlock != 0 {
		n.PoolStartBlock = f.PoolStartBlock
	}
	return n, nil
}
