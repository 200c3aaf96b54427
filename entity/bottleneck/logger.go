package bottleneck

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "bottleneck")
