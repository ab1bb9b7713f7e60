package vad

import "os"

func writeTempWAV(data []byte) (string, error) {
	f, err := os.CreateTemp("", "go-transcript-vad-*.wav")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func removeTemp(path string) {
	_ = os.Remove(path)
}
