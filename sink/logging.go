package sink

import (
	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

var zlog *zap.Logger

func init() {
	zlog, _ = logging.PackageLogger("sink", "github.com/streamingfast/uniswap-v2-indexer/sink")
}
