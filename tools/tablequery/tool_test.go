package tablequery_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/mocks/mockllms"
	"github.com/effective-security/finrecon/pkg/llms"
	"github.com/effective-security/finrecon/pkg/llmutils"
	"github.com/effective-security/finrecon/tools"
	"github.com/effective-security/finrecon/tools/tablequery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestToolRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	e := openLedger(t)
	var verbose bytes.Buffer

	tool := tablequery.New(e, llm,
		tablequery.WithDescription("Internal transaction records, columns: trans_id, date, amount, desc"),
		tablequery.WithVerbose(&verbose),
	)
	assert.Equal(t, "internal_records", tool.Name())
	assert.Equal(t, "Internal transaction records, columns: trans_id, date, amount, desc", tool.Description())
	params := tool.Parameters()
	require.NotNil(t, params)
	_, ok := params.Properties.Get("input")
	assert.True(t, ok)
	assert.Equal(t, []string{"input"}, params.Required)

	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, msgs, 2)
				assert.Equal(t, llms.RoleSystem, msgs[0].Role)
				sys := msgs[0].GetContent()
				assert.Contains(t, sys, `SQLite table named "internal_records"`)
				assert.Contains(t, sys, `- "desc" TEXT`)
				assert.Contains(t, sys, fmt.Sprintf(`SELECT * FROM "internal_records" LIMIT %d`, tablequery.PreviewRows))
				assert.Contains(t, sys, "T103     | 2023-10-03 | 3000.0 | Business Flight")
				assert.Equal(t, "Question: Which transactions are above 1000?\n", msgs[1].GetContent())
				return llmutils.NewContentResponse("```sql\nSELECT trans_id, amount FROM internal_records WHERE amount > 1000\n```"), nil
			}),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, msgs, 1)
				assert.Equal(t, llms.RoleHuman, msgs[0].Role)
				prompt := msgs[0].GetContent()
				assert.Contains(t, prompt, "SQL: SELECT trans_id, amount FROM internal_records WHERE amount > 1000")
				assert.Contains(t, prompt, "T103     | 3000.0")
				return llmutils.NewContentResponse(" T103 is the only transaction above 1000. "), nil
			}),
	)

	res, err := tool.Call(context.Background(), `{"input":"Which transactions are above 1000?"}`)
	require.NoError(t, err)
	assert.Equal(t, "T103 is the only transaction above 1000.", res)
	assert.Equal(t,
		"> SQL query:\nSELECT trans_id, amount FROM internal_records WHERE amount > 1000\n> SQL output:\ntrans_id | amount\n---------+-------\nT103     | 3000.0\n",
		verbose.String())
}

func TestToolWithoutSynthesis(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	e := openLedger(t)

	tool := tablequery.New(e, llm,
		tablequery.WithName("ledger"),
		tablequery.WithSynthesis(false),
		tablequery.WithCallOptions(llms.WithTemperature(0)),
	)
	assert.Equal(t, "ledger", tool.Name())
	assert.Equal(t, "Query the internal_records table with a question in natural language, the table has columns: trans_id, date, amount, desc", tool.Description())

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
			o := llms.NewCallOptions(opts...)
			require.NotNil(t, o.Temperature)
			assert.Equal(t, 0.0, *o.Temperature)
			return llmutils.NewContentResponse("SELECT count(*) AS n FROM internal_records;"), nil
		})

	out, err := tool.Run(context.Background(), &tablequery.QueryRequest{Input: "How many?"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT count(*) AS n FROM internal_records;", out.SQL)
	assert.Equal(t, "n\n-\n3\n", out.Output)
	assert.Empty(t, out.Answer)
}

func TestToolErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	e := openLedger(t)
	tool := tablequery.New(e, llm)
	ctx := context.Background()

	_, err := tool.Call(ctx, "not a json")
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))

	_, err = tool.Call(ctx, `{"input":""}`)
	assert.True(t, errors.Is(err, tools.ErrFailedUnmarshalInput))

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("rate limited"))
	_, err = tool.Call(ctx, `{"input":"all rows"}`)
	assert.EqualError(t, err, "failed to generate SQL for internal_records: rate limited")

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(llmutils.NewContentResponse("DELETE FROM internal_records"), nil)
	_, err = tool.Call(ctx, `{"input":"remove all rows"}`)
	assert.True(t, errors.Is(err, tablequery.ErrNotReadOnly))

	llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil)
	_, err = tool.Call(ctx, `{"input":"all rows"}`)
	assert.True(t, errors.Is(err, llms.ErrEmptyResponse))
}

func TestCleanSQL(t *testing.T) {
	t.Parallel()

	tcases := map[string]string{
		"SELECT 1":                           "SELECT 1",
		"```sql\nSELECT 1\n```":              "SELECT 1",
		"```\nSELECT 1\n```":                 "SELECT 1",
		"SQLQuery: SELECT 1":                 "SELECT 1",
		"  select * from t  ":                "select * from t",
		"Here it is:\n```sql\nSELECT 2\n```": "SELECT 2",
	}
	for in, exp := range tcases {
		assert.Equal(t, exp, tablequery.CleanSQL(in), in)
	}
}
