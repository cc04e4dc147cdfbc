// Copyright ©2025 The IPsolver Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipm

import (
	"fmt"
	"io"
	"math"
	"os"
)

// Logger emits a one-line trace per outer iteration.
// The writer must be ready before Solve is called and is never written to
// concurrently, since the solver itself is strictly sequential.
type Logger struct {
	Out io.Writer // defaults to os.Stdout
}

func (l *Logger) writer() io.Writer {
	if l == nil {
		return nil
	}
	if l.Out == nil {
		return os.Stdout
	}
	return l.Out
}

func (l *Logger) header() {
	if w := l.writer(); w != nil {
		_, _ = fmt.Fprintln(w, "i, f(x), lg(mu), sigma, ||r_x||, ||r_c||, alpha, #ls")
	}
}

func (l *Logger) iter(iter int, f, mu, sigma, normRx, normRc, alpha float64, ls int) {
	if w := l.writer(); w != nil {
		_, _ = fmt.Fprintf(w, "%d, %g, %g, %g, %g, %g, %g, %d\n",
			iter+1, f, math.Log10(mu), sigma, normRx, normRc, alpha, ls)
	}
}
