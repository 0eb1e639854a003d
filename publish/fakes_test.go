package publish

import (
	"github.com/socialboost/go-publisher/publish/network"
)

// fakeAPI records calls and returns canned responses.
type fakeAPI struct {
	feedCalls  int
	photoCalls int
	videoCalls int

	lastMessage string
	lastAsset   string

	postResponse  network.PostResponse
	videoResponse network.VideoUploadResponse
	err           error
}

func (f *fakeAPI) PostFeed(message string) (network.PostResponse, error) {
	f.feedCalls++
	f.lastMessage = message
	return f.postResponse, f.err
}

func (f *fakeAPI) UploadPhoto(message, imagePath string) (network.PostResponse, error) {
	f.photoCalls++
	f.lastMessage = message
	f.lastAsset = imagePath
	return f.postResponse, f.err
}

func (f *fakeAPI) UploadVideo(message, videoPath string) (network.VideoUploadResponse, error) {
	f.videoCalls++
	f.lastMessage = message
	f.lastAsset = videoPath
	return f.videoResponse, f.err
}

func (f *fakeAPI) totalCalls() int {
	return f.feedCalls + f.photoCalls + f.videoCalls
}

// fakeEnvRepo is a map-backed env.Repository.
type fakeEnvRepo struct {
	values map[string]string
}

func (f fakeEnvRepo) Get(key string) string {
	return f.values[key]
}

func (f fakeEnvRepo) Set(key, value string) error {
	f.values[key] = value
	return nil
}

func (f fakeEnvRepo) Unset(key string) error {
	delete(f.values, key)
	return nil
}

func (f fakeEnvRepo) List() []string {
	var envs []string
	for key, value := range f.values {
		envs = append(envs, key+"="+value)
	}
	return envs
}

// stubTimeoutError mimics a transport-level timeout.
type stubTimeoutError struct{}

func (stubTimeoutError) Error() string   { return "context deadline exceeded" }
func (stubTimeoutError) Timeout() bool   { return true }
func (stubTimeoutError) Temporary() bool { return true }
