package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Template is the event set a newly discovered contract is listened to with.
type Template string

const (
	TemplateACOToken             Template = "ACOToken"
	TemplateACOPool              Template = "ACOPool"
	TemplateACOPoolFactory       Template = "ACOPoolFactory"
	TemplateAssetConverterHelper Template = "AssetConverterHelper"
	TemplateAggregatorProxy      Template = "AggregatorProxy"
	TemplateAggregatorInterface  Template = "AggregatorInterface"
)

// RegisterContract asks the host to start delivering events of Address
// under Template from Block onwards.
type RegisterContract struct {
	Address  common.Address `json:"address"`
	Template Template       `json:"template"`
	Block    uint64         `json:"block"`
}

// Registrar delivers RegisterContract commands to the host.
type Registrar interface {
	Register(ctx context.Context, cmd RegisterContract) error
}
