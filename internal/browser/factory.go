package browser

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/common"
)

// NewPoolFromConfig builds a Pool sized and timed out per the capture
// section of configuration, grounded on the teacher's pattern of deriving
// ChromeDPPoolConfig from application config at startup.
func NewPoolFromConfig(cfg *common.Config, logger arbor.ILogger) *Pool {
	return NewPool(PoolConfig{
		Size:              cfg.Capture.PoolSize,
		UserAgent:         cfg.Crawl.UserAgent,
		NavigationTimeout: cfg.Capture.NavigationTimeout,
		NoSandbox:         true,
	}, logger)
}
