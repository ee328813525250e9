package utilities

import (
	"io"

	"github.com/sirupsen/logrus"
)

// SafeClose closes closer, logging instead of returning a failure.
func SafeClose(closer io.Closer) {
	if err := closer.Close(); err != nil {
		logrus.WithError(err).Warn("close failed")
	}
}
