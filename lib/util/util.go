// Package util holds small process-level helpers shared by the nmsd
// command and the config package.
package util

import "github.com/go-i2p/logger"

var log = logger.GetGoI2PLogger()
