package neo4j

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/game-knowledge-search/internal/core/domain"
)

type runnerFake struct {
	rows    []map[string]any
	errs    []error
	cyphers []string
	params  []map[string]any
	closed  bool
}

func (r *runnerFake) Run(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	r.cyphers = append(r.cyphers, cypher)
	r.params = append(r.params, params)
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return r.rows, nil
}

func (r *runnerFake) Verify(context.Context) error { return nil }

func (r *runnerFake) Close(context.Context) error {
	r.closed = true
	return nil
}

// sequenceConnector hands out the given runners in order.
func sequenceConnector(runners ...*runnerFake) (connector, *int) {
	calls := 0
	return func(context.Context) (queryRunner, error) {
		if calls >= len(runners) {
			return nil, errors.New("no more runners")
		}
		r := runners[calls]
		calls++
		return r, nil
	}, &calls
}

func TestFindRelationsBuildsAnchoredCypher(t *testing.T) {
	runner := &runnerFake{rows: []map[string]any{
		{"source_id": "mon-7", "source_name": "예티", "target_id": int64(3), "target_name": "아이스진"},
	}}
	connect, _ := sequenceConnector(runner)
	client, err := newClient(context.Background(), connect, 0, nil)
	require.NoError(t, err)

	tuples, err := client.FindRelations(context.Background(), domain.RelationItemDropper, " 아이스진 ")
	require.NoError(t, err)
	require.Len(t, tuples, 1)

	assert.Equal(t, "DROPS", tuples[0].Relation)
	assert.Equal(t, "3", tuples[0].TargetID)
	id, name := tuples[0].AnswerSide()
	assert.Equal(t, "mon-7", id)
	assert.Equal(t, "예티", name)

	cypher := runner.cyphers[0]
	assert.Contains(t, cypher, "(s:MONSTER)-[:DROPS]->(t:ITEM)")
	assert.Contains(t, cypher, "WHERE t.name CONTAINS $name")
	assert.Equal(t, "아이스진", runner.params[0]["name"])
	assert.Equal(t, int64(defaultResultLimit), runner.params[0]["limit"])
}

func TestFindRelationsAnchorsSourceSide(t *testing.T) {
	runner := &runnerFake{}
	connect, _ := sequenceConnector(runner)
	client, err := newClient(context.Background(), connect, 10, nil)
	require.NoError(t, err)

	tuples, err := client.FindRelations(context.Background(), domain.RelationNPCLocation, "다크로드")
	require.NoError(t, err)
	assert.Empty(t, tuples)
	assert.True(t, strings.Contains(runner.cyphers[0], "WHERE s.name CONTAINS $name"))
}

func TestFindRelationsUnknownKind(t *testing.T) {
	connect, _ := sequenceConnector(&runnerFake{})
	client, err := newClient(context.Background(), connect, 0, nil)
	require.NoError(t, err)

	_, err = client.FindRelations(context.Background(), domain.RelationKind("bogus"), "x")
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestRunTraversalReconnectsOnceOnClosedConnection(t *testing.T) {
	stale := &runnerFake{errs: []error{errors.New("connection pool closed")}}
	fresh := &runnerFake{rows: []map[string]any{{"n": "ok"}}}
	connect, calls := sequenceConnector(stale, fresh)
	client, err := newClient(context.Background(), connect, 0, nil)
	require.NoError(t, err)

	rows, err := client.RunTraversal(context.Background(), "MATCH (n) RETURN n", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, *calls)
	assert.True(t, stale.closed)
}

func TestRunTraversalSecondFailureSurfaces(t *testing.T) {
	stale := &runnerFake{errs: []error{domain.ErrConnectionClosed}}
	fresh := &runnerFake{errs: []error{domain.ErrConnectionClosed}}
	connect, _ := sequenceConnector(stale, fresh)
	client, err := newClient(context.Background(), connect, 0, nil)
	require.NoError(t, err)

	_, err = client.RunTraversal(context.Background(), "MATCH (n) RETURN n", nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrAdapterUnavailable))
	assert.Len(t, fresh.cyphers, 1)
}

func TestRunTraversalQueryErrorIsNotRetried(t *testing.T) {
	runner := &runnerFake{errs: []error{errors.New("syntax error")}}
	connect, calls := sequenceConnector(runner)
	client, err := newClient(context.Background(), connect, 0, nil)
	require.NoError(t, err)

	_, err = client.RunTraversal(context.Background(), "MATCH", nil)
	require.Error(t, err)
	assert.Equal(t, 1, *calls)
}

func TestFindPath(t *testing.T) {
	runner := &runnerFake{rows: []map[string]any{
		{"path_names": []any{"헤네시스", "헤네시스 사냥터", "슬리피우드"}, "distance": int64(2)},
	}}
	connect, _ := sequenceConnector(runner)
	client, err := newClient(context.Background(), connect, 0, nil)
	require.NoError(t, err)

	path, err := client.FindPath(context.Background(), "헤네시스", "슬리피우드")
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.Equal(t, 2, path.Distance)
	assert.Equal(t, []string{"헤네시스", "헤네시스 사냥터", "슬리피우드"}, path.Names)
}

func TestNewClientConnectFailure(t *testing.T) {
	_, err := newClient(context.Background(), func(context.Context) (queryRunner, error) {
		return nil, errors.New("dial tcp: refused")
	}, 0, nil)
	assert.True(t, domain.IsKind(err, domain.ErrAdapterUnavailable))
}

func TestPingAfterCloseIsUnavailable(t *testing.T) {
	runner := &runnerFake{}
	connect, _ := sequenceConnector(runner)
	client, err := newClient(context.Background(), connect, 0, nil)
	require.NoError(t, err)

	require.NoError(t, client.Ping(context.Background()))
	require.NoError(t, client.Close(context.Background()))

	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrAdapterUnavailable))
	assert.True(t, errors.Is(err, domain.ErrConnectionClosed))
}
