package s3

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

/*
Corpus stores knowledge documents as objects in a MinIO/S3 bucket, one
object per document name. It satisfies the same contract as the file store
so deployments with object storage can swap it in through config alone.
*/
type Corpus struct {
	client *minio.Client
	bucket string

	once      sync.Once
	bucketErr error
}

/*
Config carries the connection parameters for the object store. All of it is
injected by the caller; the store never reads the environment.
*/
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewCorpus(cfg Config) (*Corpus, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})

	if err != nil {
		return nil, err
	}

	return &Corpus{client: client, bucket: cfg.Bucket}, nil
}

// ensureBucket creates the bucket on first use; the result is cached for the
// lifetime of the store.
func (corpus *Corpus) ensureBucket(ctx context.Context) error {
	corpus.once.Do(func() {
		exists, err := corpus.client.BucketExists(ctx, corpus.bucket)

		if err != nil {
			corpus.bucketErr = err
			return
		}

		if !exists {
			corpus.bucketErr = corpus.client.MakeBucket(
				ctx, corpus.bucket, minio.MakeBucketOptions{},
			)
		}
	})

	return corpus.bucketErr
}

/*
Put uploads content under name. The upload completes before Put returns, so
a LoadAll issued afterwards observes the document.
*/
func (corpus *Corpus) Put(name, content string) error {
	ctx := context.Background()

	if err := corpus.ensureBucket(ctx); err != nil {
		return err
	}

	_, err := corpus.client.PutObject(
		ctx, corpus.bucket, name+".txt",
		strings.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/plain"},
	)

	return err
}

/*
LoadAll downloads every document in the bucket and concatenates them,
blank-line separated, in object name order.
*/
func (corpus *Corpus) LoadAll() (string, error) {
	ctx := context.Background()

	if err := corpus.ensureBucket(ctx); err != nil {
		return "", err
	}

	var names []string

	for object := range corpus.client.ListObjects(
		ctx, corpus.bucket, minio.ListObjectsOptions{Recursive: true},
	) {
		if object.Err != nil {
			return "", object.Err
		}

		names = append(names, object.Key)
	}

	sort.Strings(names)

	var documents []string

	for _, name := range names {
		object, err := corpus.client.GetObject(
			ctx, corpus.bucket, name, minio.GetObjectOptions{},
		)

		if err != nil {
			return "", err
		}

		data, err := io.ReadAll(object)
		object.Close()

		if err != nil {
			return "", err
		}

		documents = append(documents, strings.TrimSpace(string(data)))
	}

	return strings.Join(documents, "\n\n"), nil
}
