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
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/cachekit/cachekit/golibs/kvs"
	"github.com/stretchr/testify/assert"
	"testing"
)

// The test requires a running S3 endpoint, so it is disabled and should be run manually.
// For example, to run the test you can use minio locally:
// docker run --rm -p 9000:9000 -p 9001:9001 -e "MINIO_ACCESS_KEY=username" -e "MINIO_SECRET_KEY=password" --name minio1  minio/minio server /data --console-address=:9001
func __TestS3Storage(t *testing.T) {
	s3c := &Storage{AwsConfig: &aws.Config{
		Credentials:      credentials.NewStaticCredentials("username", "password", ""),
		Endpoint:         aws.String("http://localhost:9000"),
		Region:           aws.String("us-west-1"),
		DisableSSL:       aws.Bool(true),
		S3ForcePathStyle: aws.Bool(true),
	},
		Bucket: "test",
	}
	assert.Nil(t, s3c.Init(context.Background()))
	kvs.TestStorage(t, s3c)
}

func Test_oKey(t *testing.T) {
	assert.Equal(t, "kvs/aaa", oKey("aaa"))
	assert.Equal(t, "kvs/aaa", oKey("//aaa"))
	assert.Equal(t, "aaa", key(oKey("aaa")))
	assert.Equal(t, "", key("kvs/"))
}

func Test_obj2rec(t *testing.T) {
	r := kvs.Record{Key: "k1", Value: []byte{1, 2, 3}, Version: "v1"}
	buf := []byte(`{"value":"AQID","version":"v1"}`)
	r1, err := obj2rec("k1", buf)
	assert.Nil(t, err)
	assert.Equal(t, r, r1)

	_, err = obj2rec("k1", []byte("boom"))
	assert.NotNil(t, err)
}
