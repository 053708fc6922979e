package fixtures

import (
	"github.com/jinzhu/copier"
	"github.com/metal-toolbox/dpuctl/internal/model"
)

var identities = map[model.DeviceKind]model.DeviceIdentity{
	model.DeviceKindBlueField: {
		Kind:        model.DeviceKindBlueField,
		Index:       0,
		MgmtAddress: "192.168.100.2",
	},

	model.DeviceKindIPU: {
		Kind:  model.DeviceKindIPU,
		Index: 0,
	},
}

// Identity returns a fixture device identity for the family, deep copied so
// tests cannot contaminate each other.
func Identity(kind model.DeviceKind) model.DeviceIdentity {
	src := identities[kind]

	var dst model.DeviceIdentity

	copyOptions := copier.Option{IgnoreEmpty: true, DeepCopy: true}

	if err := copier.CopyWithOption(&dst, &src, copyOptions); err != nil {
		panic(err)
	}

	return dst
}
