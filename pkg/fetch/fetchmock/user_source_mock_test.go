/*
Copyright 2026 Nscale.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fetchmock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nscale-oss/fetchplan/pkg/fetch"
	"github.com/nscale-oss/fetchplan/pkg/fetch/fetchmock"
	"github.com/nscale-oss/fetchplan/pkg/fetch/sources/httpapi"
)

func TestMockUserSourceBatchesThroughZip2(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := fetchmock.NewMockUserSource(ctrl)

	src.EXPECT().Name().Return("Users").AnyTimes()
	src.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, batch []fetch.BlockedFetch[httpapi.ID, httpapi.User]) []fetch.PerformFetch {
			tasks := make([]fetch.PerformFetch, len(batch))

			for i, b := range batch {
				b := b
				tasks[i] = fetch.Sync(func() {
					b.Cell.PutSuccess(httpapi.User{ID: int(b.Request), Name: "user"})
				})
			}

			return tasks
		},
	).Times(1)

	plan := fetch.Zip2(
		fetch.DataFetch[httpapi.ID, httpapi.User](src, httpapi.ID(1)),
		fetch.DataFetch[httpapi.ID, httpapi.User](src, httpapi.ID(2)),
	)

	v, err := fetch.Run(context.Background(), plan)
	require.NoError(t, err)
	require.Equal(t, 1, v.First.ID)
	require.Equal(t, 2, v.Second.ID)
}
