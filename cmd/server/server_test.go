package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/opencontest/contest-api/internal/configstore"
	"github.com/opencontest/contest-api/internal/distribution"
	"github.com/opencontest/contest-api/internal/evaluation"
	"github.com/opencontest/contest-api/cmd/server/internal/middleware"
	"github.com/opencontest/contest-api/internal/migrations"
	"github.com/opencontest/contest-api/internal/models"
	"github.com/opencontest/contest-api/cmd/server/internal/routes"
	routesv1 "github.com/opencontest/contest-api/cmd/server/internal/routes/v1"
	"github.com/opencontest/contest-api/internal/config"
	"github.com/opencontest/contest-api/internal/judge"
	"github.com/opencontest/contest-api/internal/logger"
	"github.com/opencontest/contest-api/internal/otel"
	"github.com/opencontest/contest-api/internal/types"
)

// fakeRunner scripts the execution service outcome per test
type fakeRunner struct {
	result *judge.RunResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, req *judge.RunRequest) (*judge.RunResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}

	results := make([]judge.TestResult, 0, len(req.TestCases))
	for i := range req.TestCases {
		results = append(results, judge.TestResult{
			Token:    fmt.Sprintf("token-%d", i),
			Verdict:  judge.VerdictPassed,
			StatusID: judge.StatusAccepted,
		})
	}
	return &judge.RunResult{Results: results, Passed: len(results)}, nil
}

type ServerTestSuite struct {
	suite.Suite

	config       *config.Config
	postgres     *postgres.PostgresContainer
	db           *gorm.DB
	tx           *gorm.DB
	otelShutdown func(context.Context) error
	server       *httptest.Server
	runner       *fakeRunner
	store        *configstore.Store

	contest     models.Contest
	manualRound models.Round
	autoRound   models.Round
	autoProblem models.Problem
}

func (s *ServerTestSuite) SetupSuite() {
	logger.InitSlog()

	cfg, err := config.GetConfig()
	s.Require().NoError(err, "failed getting config")
	s.config = cfg

	postgresContainer, err := postgres.Run(
		s.T().Context(),
		"postgres:16.4-alpine",
		postgres.WithDatabase("contestapi"),
		postgres.WithUsername("contestapi"),
		postgres.WithPassword("contestapi"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	s.Require().NoError(err, "failed to start postgres container")
	s.postgres = postgresContainer

	dsn, err := s.postgres.ConnectionString(s.T().Context())
	s.Require().NoError(err, "failed to get connection string to container")

	db, err := gorm.Open(gormpostgres.Open(dsn))
	s.Require().NoError(err, "failed to connect to the database")
	s.db = db

	err = migrations.Up(s.T().Context(), db)
	s.Require().NoError(err, "failed to run up migrations")

	shutdownOTel, err := otel.SetupOTelSDK(s.T().Context(), false)
	s.Require().NoError(err, "could not setup otel")
	s.otelShutdown = shutdownOTel
}

func (s *ServerTestSuite) SetupTest() {
	s.tx = s.db.Begin()
	s.store = configstore.New(s.tx)
	s.runner = &fakeRunner{}

	s.seedDB()

	v1Handler := routesv1.NewHandler(
		s.tx,
		distribution.New(s.tx),
		evaluation.New(s.tx, s.runner),
		s.config,
	)
	middlewareHandler := middleware.Handler{DB: s.tx}

	e, err := routes.BuildEcho(logger.Logger)
	s.Require().NoError(err, "failed to construct router")

	v1Handler.AddRoutes(e, &middlewareHandler)

	s.server = httptest.NewServer(e)
}

func (s *ServerTestSuite) TearDownTest() {
	s.Require().NoError(s.tx.Rollback().Error)
	s.server.Close()
}

func (s *ServerTestSuite) TearDownSuite() {
	s.Require().NoError(testcontainers.TerminateContainer(s.postgres))
	s.Require().NoError(s.otelShutdown(s.T().Context()))
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) seedDB() {
	contestStart := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	contestEnd := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)

	s.contest = models.Contest{
		Name:     "integration cup",
		Status:   types.ContestStatusOngoing,
		StartsAt: &contestStart,
		EndsAt:   &contestEnd,
		Year:     2025,
	}
	s.Require().NoError(s.tx.Create(&s.contest).Error)

	s.Require().NoError(s.store.SetTime(
		s.T().Context(),
		configstore.ContestRegistrationStart(s.contest.ID),
		time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		configstore.ScopeContest,
	))
	s.Require().NoError(s.store.SetTime(
		s.T().Context(),
		configstore.ContestRegistrationEnd(s.contest.ID),
		time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC),
		configstore.ScopeContest,
	))

	s.manualRound = models.Round{
		Name:      "essay round",
		Status:    types.RoundStatusClosed,
		ContestID: s.contest.ID,
		StartsAt:  contestStart,
		EndsAt:    contestStart.Add(4 * time.Hour),
	}
	s.Require().NoError(s.tx.Create(&s.manualRound).Error)

	manualProblem := models.Problem{
		Title:       "essay",
		GradingKind: types.GradingKindManual,
		RoundID:     s.manualRound.ID,
	}
	s.Require().NoError(s.tx.Create(&manualProblem).Error)

	s.autoRound = models.Round{
		Name:      "coding round",
		Status:    types.RoundStatusClosed,
		ContestID: s.contest.ID,
		StartsAt:  contestStart.Add(4 * time.Hour),
		EndsAt:    contestStart.Add(8 * time.Hour),
	}
	s.Require().NoError(s.tx.Create(&s.autoRound).Error)

	s.autoProblem = models.Problem{
		Title:       "echo the input",
		GradingKind: types.GradingKindAuto,
		RoundID:     s.autoRound.ID,
		LanguageID:  71,
		TestCases: []models.TestCase{
			{Stdin: "1", ExpectedOutput: "1", Position: 0},
			{Stdin: "2", ExpectedOutput: "2", Position: 1},
		},
	}
	s.Require().NoError(s.tx.Create(&s.autoProblem).Error)
}

type resp struct {
	body string
	code int
}

func doRequest(t *testing.T, req *http.Request) (*resp, error) {
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send http request")
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err, "failed to read body")

	return &resp{body: string(body), code: res.StatusCode}, nil
}

func (s *ServerTestSuite) get(path string) *resp {
	req, err := http.NewRequestWithContext(
		s.T().Context(), http.MethodGet, s.server.URL+path, nil)
	s.Require().NoError(err)

	response, err := doRequest(s.T(), req)
	s.Require().NoError(err)
	return response
}

func (s *ServerTestSuite) post(path string) *resp {
	req, err := http.NewRequestWithContext(
		s.T().Context(), http.MethodPost, s.server.URL+path, nil)
	s.Require().NoError(err)

	response, err := doRequest(s.T(), req)
	s.Require().NoError(err)
	return response
}

func (s *ServerTestSuite) Test_Health() {
	response := s.get("/health/")
	s.Equal(http.StatusOK, response.code)
}

func (s *ServerTestSuite) Test_Ping() {
	response := s.get("/v1/ping/")
	s.Equal(http.StatusOK, response.code)

	var body types.PingResponse
	s.Require().NoError(json.Unmarshal([]byte(response.body), &body))
	s.Equal("ready", body.Status)
}

func (s *ServerTestSuite) Test_ContestStatus() {
	response := s.get("/v1/contests/" + s.contest.ID.String() + "/")
	s.Equal(http.StatusOK, response.code)

	var body types.ContestStatusResponse
	s.Require().NoError(json.Unmarshal([]byte(response.body), &body))

	s.Equal(s.contest.ID.String(), body.ID)
	s.Equal("integration cup", body.Name)
	s.Equal(string(types.ContestStatusOngoing), body.Status)
	// Both round windows have long passed relative to the request time, so the
	// stored ongoing contest resolves to completed without being written back.
	s.Equal(string(types.ContestStatusCompleted), body.ResolvedStatus)
	s.Require().NotNil(body.RegistrationStart)
	s.Require().NotNil(body.RegistrationEnd)

	s.Require().Len(body.Rounds, 2)
	s.Equal("essay round", body.Rounds[0].Name)
	s.Equal(string(types.RoundStatusClosed), body.Rounds[0].Status)

	var stored models.Contest
	s.Require().NoError(s.tx.First(&stored, s.contest.ID).Error)
	s.Equal(types.ContestStatusOngoing, stored.Status, "read path must not persist transitions")
}

func (s *ServerTestSuite) Test_ContestStatusNotFound() {
	response := s.get("/v1/contests/" + uuid.New().String() + "/")
	s.Equal(http.StatusNotFound, response.code)

	response = s.get("/v1/contests/not-a-uuid/")
	s.Equal(http.StatusNotFound, response.code)
}

func (s *ServerTestSuite) Test_DistributeRound() {
	judgeID := uuid.New()
	s.Require().NoError(s.store.AddJudge(s.T().Context(), s.contest.ID, judgeID))

	submission := models.Submission{
		SourceCode: "essay text",
		Status:     types.SubmissionStatusPending,
		TeamID:     uuid.New(),
		ProblemID:  s.problemIDForRound(s.manualRound.ID),
	}
	s.Require().NoError(s.tx.Create(&submission).Error)

	response := s.post("/v1/rounds/" + s.manualRound.ID.String() + "/distribute/")
	s.Equal(http.StatusOK, response.code)

	var reloaded models.Submission
	s.Require().NoError(s.tx.First(&reloaded, submission.ID).Error)
	s.Require().NotNil(models.PtrFromNull(reloaded.JudgedBy))
	s.Equal(judgeID.String(), *models.PtrFromNull(reloaded.JudgedBy))

	// Second call is an idempotent success
	response = s.post("/v1/rounds/" + s.manualRound.ID.String() + "/distribute/")
	s.Equal(http.StatusOK, response.code)
}

func (s *ServerTestSuite) Test_DistributeRoundNoJudges() {
	response := s.post("/v1/rounds/" + s.manualRound.ID.String() + "/distribute/")
	s.Equal(http.StatusConflict, response.code)
}

func (s *ServerTestSuite) Test_DistributeAutoGradedRound() {
	response := s.post("/v1/rounds/" + s.autoRound.ID.String() + "/distribute/")
	s.Equal(http.StatusBadRequest, response.code)
}

func (s *ServerTestSuite) Test_DistributeRoundNotFound() {
	response := s.post("/v1/rounds/" + uuid.New().String() + "/distribute/")
	s.Equal(http.StatusNotFound, response.code)
}

func (s *ServerTestSuite) Test_EvaluateSubmission() {
	submission := models.Submission{
		SourceCode: "print(input())",
		Status:     types.SubmissionStatusPending,
		TeamID:     uuid.New(),
		ProblemID:  s.autoProblem.ID,
		LanguageID: 71,
	}
	s.Require().NoError(s.tx.Create(&submission).Error)

	response := s.post("/v1/submissions/" + submission.ID.String() + "/evaluate/")
	s.Equal(http.StatusOK, response.code)

	var reloaded models.Submission
	s.Require().NoError(s.tx.First(&reloaded, submission.ID).Error)
	s.Equal(types.SubmissionStatusJudged, reloaded.Status)
	s.Require().NotNil(models.PtrFromNull(reloaded.Score))
	s.Equal(100, *models.PtrFromNull(reloaded.Score))
}

func (s *ServerTestSuite) Test_EvaluateSubmissionPartialScore() {
	s.runner.result = &judge.RunResult{
		Results: []judge.TestResult{
			{Verdict: judge.VerdictPassed, StatusID: judge.StatusAccepted},
			{Verdict: judge.VerdictFailed, StatusID: 4},
		},
		Passed: 1,
	}

	submission := models.Submission{
		SourceCode: "print(1)",
		Status:     types.SubmissionStatusPending,
		TeamID:     uuid.New(),
		ProblemID:  s.autoProblem.ID,
		LanguageID: 71,
	}
	s.Require().NoError(s.tx.Create(&submission).Error)

	response := s.post("/v1/submissions/" + submission.ID.String() + "/evaluate/")
	s.Equal(http.StatusOK, response.code)

	var reloaded models.Submission
	s.Require().NoError(s.tx.First(&reloaded, submission.ID).Error)
	s.Equal(types.SubmissionStatusJudged, reloaded.Status)
	s.Equal(50, *models.PtrFromNull(reloaded.Score))
}

func (s *ServerTestSuite) Test_EvaluateSubmissionRateLimited() {
	s.runner.err = judge.ErrRateLimited

	submission := models.Submission{
		SourceCode: "print(1)",
		Status:     types.SubmissionStatusPending,
		TeamID:     uuid.New(),
		ProblemID:  s.autoProblem.ID,
		LanguageID: 71,
	}
	s.Require().NoError(s.tx.Create(&submission).Error)

	response := s.post("/v1/submissions/" + submission.ID.String() + "/evaluate/")
	s.Equal(http.StatusServiceUnavailable, response.code)

	var reloaded models.Submission
	s.Require().NoError(s.tx.First(&reloaded, submission.ID).Error)
	s.Equal(types.SubmissionStatusPending, reloaded.Status, "rate limiting must leave the submission retryable")
}

func (s *ServerTestSuite) Test_EvaluateManualSubmission() {
	submission := models.Submission{
		SourceCode: "essay text",
		Status:     types.SubmissionStatusPending,
		TeamID:     uuid.New(),
		ProblemID:  s.problemIDForRound(s.manualRound.ID),
	}
	s.Require().NoError(s.tx.Create(&submission).Error)

	response := s.post("/v1/submissions/" + submission.ID.String() + "/evaluate/")
	s.Equal(http.StatusBadRequest, response.code)
}

func (s *ServerTestSuite) Test_EvaluateExecutionFailureMarksErrored() {
	s.runner.err = fmt.Errorf("execution service exploded")

	submission := models.Submission{
		SourceCode: "print(1)",
		Status:     types.SubmissionStatusPending,
		TeamID:     uuid.New(),
		ProblemID:  s.autoProblem.ID,
		LanguageID: 71,
	}
	s.Require().NoError(s.tx.Create(&submission).Error)

	response := s.post("/v1/submissions/" + submission.ID.String() + "/evaluate/")
	s.Equal(http.StatusInternalServerError, response.code)

	var reloaded models.Submission
	s.Require().NoError(s.tx.First(&reloaded, submission.ID).Error)
	s.Equal(types.SubmissionStatusErrored, reloaded.Status)
}

func (s *ServerTestSuite) problemIDForRound(roundID uuid.UUID) uuid.UUID {
	var problem models.Problem
	s.Require().NoError(s.tx.Where("round_id = ?", roundID).First(&problem).Error)
	return problem.ID
}
