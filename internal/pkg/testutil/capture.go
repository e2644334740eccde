// Package testutil содержит общие утилиты для тестирования.
package testutil

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CaptureStdout подменяет os.Stdout на время fn и возвращает всё,
// что было в него записано. Pipe читается параллельно, поэтому объём
// вывода не ограничен буфером pipe.
func CaptureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err, "не удалось создать pipe для stdout")

	read := make(chan []byte, 1)
	go func() {
		data, _ := io.ReadAll(r) //nolint:errcheck // ошибка чтения проявится пустым выводом
		read <- data
	}()

	orig := os.Stdout
	os.Stdout = w
	func() {
		defer func() { os.Stdout = orig }()
		fn()
	}()

	require.NoError(t, w.Close())
	out := <-read
	require.NoError(t, r.Close())
	return string(out)
}
