package assistant

import (
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/domain"
)

const UnknownModel = "unknown"

// ActiveModel is what the assistant shows at startup for one service
type ActiveModel struct {
	Service domain.ServiceName
	Kind    domain.BackendKind
	Model   string
}

// ActiveModels reads the services file for display only. A missing or
// unreadable file is not an error, every known service reports unknown.
func ActiveModels(path string) []ActiveModel {
	byName := make(map[domain.ServiceName]*domain.ServiceDescriptor)
	if sf, err := config.LoadServices(path); err == nil {
		descs, _ := sf.Descriptors()
		for _, d := range descs {
			byName[d.Name] = d
		}
	}

	out := make([]ActiveModel, 0, len(domain.KnownServices()))
	for _, name := range domain.KnownServices() {
		am := ActiveModel{Service: name, Model: UnknownModel}
		if d, ok := byName[name]; ok {
			am.Kind = d.Kind
			if label := d.ModelLabel(); label != "" {
				am.Model = label
			}
		}
		out = append(out, am)
	}
	return out
}
