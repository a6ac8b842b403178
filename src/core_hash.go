package main

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"

	"github.com/spf13/afero"
)

// hashChunkSize bounds memory use regardless of file size.
const hashChunkSize = 256 * 1024

// Fingerprint returns the hex sha256 of the file's content. With legacy set it
// returns "<sha256>-<md5>", the form older libraries were named with.
func Fingerprint(fs afero.Fs, path string, legacy bool) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", ioErr("open", path, err)
	}
	defer f.Close()

	sha := sha256.New()
	hashes := []hash.Hash{sha}
	var sum5 hash.Hash
	if legacy {
		sum5 = md5.New()
		hashes = append(hashes, sum5)
	}

	buf := make([]byte, hashChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			for _, h := range hashes {
				h.Write(buf[:n])
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", ioErr("read", path, err)
		}
	}

	out := hex.EncodeToString(sha.Sum(nil))
	if legacy {
		out += "-" + hex.EncodeToString(sum5.Sum(nil))
	}
	return out, nil
}
