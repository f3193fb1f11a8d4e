package hap

import (
	"github.com/boundless-engineering/hap/log"

	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

type fsStore struct {
	Path string
}

// NewFsStore returns a Store writing every key to its own file
// inside dir.
func NewFsStore(dir string) *fsStore {
	// Prepare filesystem directory
	// Ensure that execute permission bit is set on all created dirs
	// Read http://unix.stackexchange.com/questions/21251/why-do-directories-need-the-executable-x-permission-to-be-opened
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		log.Info.Panic(err)
	}

	return &fsStore{dir}
}

func (fs *fsStore) Set(key string, value []byte) error {
	file, err := os.OpenFile(fs.filePathToFile(key), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}

	defer file.Close()

	_, err = file.Write(value)
	return err
}

func (fs *fsStore) Get(key string) ([]byte, error) {
	file, err := os.OpenFile(fs.filePathToFile(key), os.O_RDONLY, 0666)
	if err != nil {
		return nil, err
	}

	defer file.Close()

	var b bytes.Buffer
	var buffer = make([]byte, 32)
	for {
		n, _ := file.Read(buffer)
		if n > 0 {
			b.Write(buffer[:n])
		} else {
			break
		}
	}

	return b.Bytes(), nil
}

// Delete removes the file for the corresponding key.
func (fs *fsStore) Delete(key string) error {
	return os.Remove(fs.filePathToFile(key))
}

func (fs *fsStore) KeysWithSuffix(suffix string) (keys []string, err error) {
	var infos []os.FileInfo

	if infos, err = ioutil.ReadDir(fs.Path); err == nil {
		for _, info := range infos {
			if info.IsDir() == false && strings.HasSuffix(info.Name(), suffix) == true {
				keys = append(keys, info.Name())
			}
		}
	}

	return
}

func (fs *fsStore) filePathToFile(file string) string {
	return filepath.Join(fs.Path, sanitizeFilename(file))
}

// sanitizeFilename returns a valid file name by removing invalid characters (e.g. colon ":" which is not allowed in file names on Windows)
func sanitizeFilename(filename string) string {
	return strings.Replace(filename, ":", "", -1)
}
