package fs

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

const writeBufferSize = 256 * 1024

// WriteAtomic replaces filename with the bytes produced by write.
//
// The data goes to a temp file in the same directory, which is flushed,
// fsynced and renamed over filename; the directory is then fsynced on a
// best-effort basis. On any error filename is left untouched and the temp
// file is removed.
func WriteAtomic(fsys FileSystem, filename string, perm os.FileMode, write func(io.Writer) error) error {
	fsys = OrDefault(fsys)
	dir := filepath.Dir(filename)

	tmp, err := fsys.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
		}
		if tmpName != "" {
			_ = fsys.Remove(tmpName)
		}
	}()

	if f, ok := tmp.(*os.File); ok {
		_ = f.Chmod(perm)
	}

	buf := bufio.NewWriterSize(tmp, writeBufferSize)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	err = tmp.Close()
	tmp = nil
	if err != nil {
		return err
	}

	if err := fsys.Rename(tmpName, filename); err != nil {
		return err
	}
	tmpName = ""

	if d, err := fsys.OpenFile(dir, os.O_RDONLY, 0); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
