// Copyright 2025 The Cachekit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/cachekit/cachekit/golibs/container/iterable"
	"github.com/cachekit/cachekit/golibs/errors"
	"github.com/cachekit/cachekit/golibs/kvs"
	"github.com/cachekit/cachekit/golibs/ulidutils"
	"github.com/gobwas/glob"
	"io"
)

type (
	// Storage struct provides kvs.Storage functionality on top of AWS S3.
	// Every record is stored as a separate object, so the storage is slow,
	// but it is cheap and virtually unlimited in size.
	Storage struct {
		AwsConfig *aws.Config `inject:""`
		Bucket    string      `inject:"AwsS3Bucket"`

		client *s3.S3
	}

	// oRecord is the record form stored in the object body. The key is not
	// stored in the payload, it is always restored from the object path.
	oRecord struct {
		Value   []byte `json:"value,omitempty"`
		Version string `json:"version"`
	}

	keysIterator struct {
		res []string
	}
)

var _ kvs.Storage = (*Storage)(nil)

// Init creates new S3 session to connect to S3
func (st *Storage) Init(_ context.Context) error {
	newSession, err := session.NewSession(st.AwsConfig)
	if err != nil {
		return fmt.Errorf("could not initialize Storage, bucket=%s: %w", st.Bucket, err)
	}
	st.client = s3.New(newSession)
	return nil
}

// Create implements kvs.Storage. The operation is not atomic, two concurrent
// Create calls for the same key may both succeed, the last writer wins then.
func (st *Storage) Create(ctx context.Context, record kvs.Record) (string, error) {
	_, err := st.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(st.Bucket),
		Key:    aws.String(oKey(record.Key)),
	})
	if err == nil {
		return "", errors.ErrExist
	}
	if toError(err) != errors.ErrNotExist {
		return "", toError(err)
	}

	record.Version = ulidutils.NewID()
	return record.Version, st.putObject(&record)
}

// Get implements kvs.Storage
func (st *Storage) Get(ctx context.Context, key string) (kvs.Record, error) {
	res, err := st.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(st.Bucket),
		Key:    aws.String(oKey(key)),
	})
	if err != nil {
		return kvs.Record{}, toError(err)
	}
	defer res.Body.Close()

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		return kvs.Record{}, fmt.Errorf("could not read the object body for key=%s: %w", key, err)
	}
	return obj2rec(key, buf)
}

// GetMany implements kvs.Storage
func (st *Storage) GetMany(ctx context.Context, keys ...string) ([]*kvs.Record, error) {
	res := make([]*kvs.Record, len(keys))
	for idx, key := range keys {
		r, err := st.Get(ctx, key)
		if err != nil {
			if errors.Is(err, errors.ErrNotExist) {
				continue
			}
			return nil, err
		}
		res[idx] = &r
	}
	return res, nil
}

// Put implements kvs.Storage
func (st *Storage) Put(ctx context.Context, record kvs.Record) (kvs.Record, error) {
	record.Version = ulidutils.NewID()
	return record, st.putObject(&record)
}

// Delete implements kvs.Storage. S3 reports ok for removing a non-existing
// object, so the existence is checked explicitly first.
func (st *Storage) Delete(ctx context.Context, key string) error {
	_, err := st.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(st.Bucket),
		Key:    aws.String(oKey(key)),
	})
	if err != nil {
		return toError(err)
	}

	_, err = st.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(st.Bucket),
		Key:    aws.String(oKey(key)),
	})
	if err != nil {
		return toError(err)
	}
	return nil
}

// ListKeys implements kvs.Storage
func (st *Storage) ListKeys(ctx context.Context, pattern string) (iterable.Iterator[string], error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("could not compile the pattern %q: %w", pattern, err)
	}

	input := &s3.ListObjectsInput{
		Bucket:  aws.String(st.Bucket),
		Prefix:  aws.String(keysPrefix),
		MaxKeys: aws.Int64(1000),
	}

	res := []string{}
	for {
		result, err := st.client.ListObjects(input)
		if err != nil {
			return nil, toError(err)
		}

		for _, c := range result.Contents {
			k := key(aws.StringValue(c.Key))
			if g.Match(k) {
				res = append(res, k)
			}
		}

		if !aws.BoolValue(result.IsTruncated) {
			break
		}
		if result.NextMarker != nil {
			input.Marker = result.NextMarker
		} else if len(result.Contents) > 0 {
			input.Marker = result.Contents[len(result.Contents)-1].Key
		}
	}
	return &keysIterator{res: res}, nil
}

func (st *Storage) putObject(r *kvs.Record) error {
	buf, err := json.Marshal(oRecord{Value: r.Value, Version: r.Version})
	if err != nil {
		panic(fmt.Sprintf("could not marshal record r=%v: %s", r, err))
	}
	_, err = st.client.PutObject(&s3.PutObjectInput{
		Body:   aws.ReadSeekCloser(bytes.NewReader(buf)),
		Bucket: aws.String(st.Bucket),
		Key:    aws.String(oKey(r.Key)),
	})
	if err != nil {
		return toError(err)
	}
	return nil
}

const keysPrefix = "kvs/"

func oKey(key string) string {
	for len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	return keysPrefix + key
}

func key(oKey string) string {
	if len(oKey) > len(keysPrefix) {
		return oKey[len(keysPrefix):]
	}
	return ""
}

func obj2rec(key string, buf []byte) (kvs.Record, error) {
	var or oRecord
	if err := json.Unmarshal(buf, &or); err != nil {
		return kvs.Record{}, fmt.Errorf("could not unmarshal the object body for key=%s: %w", key, err)
	}
	return kvs.Record{Key: key, Value: or.Value, Version: or.Version}, nil
}

func toError(aerr error) error {
	if err, ok := aerr.(awserr.RequestFailure); ok {
		if err.StatusCode() == 404 {
			return errors.ErrNotExist
		}
	}
	return aerr
}

var _ iterable.Iterator[string] = (*keysIterator)(nil)

func (k *keysIterator) HasNext() bool {
	return len(k.res) > 0
}

func (k *keysIterator) Next() (string, bool) {
	if !k.HasNext() {
		return "", false
	}
	res := k.res[0]
	k.res = k.res[1:]
	return res, true
}

func (k *keysIterator) Close() error {
	k.res = nil
	return nil
}
