package types

// Version is the tidepool release version. Overridden at build time with
// -ldflags "-X github.com/m-mizutani/tidepool/pkg/domain/types.Version=..."
var Version = "dev"

// ServiceName is reported by the health endpoint and used in commit metadata
const ServiceName = "tidepool"
