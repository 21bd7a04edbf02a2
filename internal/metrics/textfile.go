// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/atomicfile"
	"github.com/AMD-AGI/Primus-SaFE/exception-scheduler/internal/errs"
)

// WriteTextfile gathers the default registry and publishes it in the
// node-exporter textfile-collector format, via atomic rename so the
// collector never reads a half-written file.
func WriteTextfile(path string) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return errs.WrapError(err, "gathering metrics", errs.CodeInternal)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errs.WrapError(err, "encoding metrics", errs.CodeInternal)
		}
	}

	if err := atomicfile.Write(path, buf.Bytes(), 0o644); err != nil {
		return errs.WrapError(err, "writing metrics textfile "+path, errs.CodeInternal)
	}
	return nil
}
