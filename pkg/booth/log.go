package booth

import (
	"log/slog"

	"github.com/go-logr/logr"
	"github.com/gogpu/gg"
	"k8s.io/klog/v2"
)

// RouteLibraryLogs sends the rasterizer's slog output to klog.
func RouteLibraryLogs() {
	gg.SetLogger(slog.New(logr.ToSlogHandler(klog.Background())))
}
