package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"lab-workflow/internal/entities"
	"lab-workflow/internal/repositories"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/config"
	"lab-workflow/pkg/constants"
	"lab-workflow/pkg/customvalidator"
	"lab-workflow/pkg/service"
	"lab-workflow/pkg/utils"
)

const testSecret = "test-secret"

type envelope struct {
	Status  bool            `json:"status"`
	Body    json.RawMessage `json:"body"`
	Message string          `json:"message"`
}

type orderCard struct {
	ID      string `json:"id"`
	Stage   string `json:"stage"`
	Version int64  `json:"version"`
	Pause   struct {
		IsPaused  bool `json:"is_paused"`
		Requested bool `json:"requested"`
	} `json:"pause"`
}

// LabRouterTestSuite гоняет HTTP API поверх хранилища в памяти.
type LabRouterTestSuite struct {
	suite.Suite
	Echo   *echo.Echo
	Orders *repositories.MemoryLabOrderRepository
}

func (s *LabRouterTestSuite) SetupTest() {
	e := echo.New()
	v := validator.New()
	s.Require().NoError(customvalidator.RegisterCustomValidations(v))
	e.Validator = utils.NewValidator(v)

	nop := zap.NewNop()
	s.Orders = repositories.NewMemoryLabOrderRepository()
	cfg := &config.Config{Workflow: config.WorkflowConfig{SLAWarningWindow: 24 * time.Hour, SLAConfigCacheTTL: time.Minute}}

	InitRouter(e, Dependencies{
		Orders: s.Orders,
		SLAConfigs: repositories.NewMemoryStageSLAConfigRepository(
			entities.StageSLAConfig{Stage: constants.StageClinicPending, TargetHours: 24, WarningHours: 18, IsActive: true},
		),
		Calendar: workflow.NewCalendar(nil),
	}, service.NewJWTService(testSecret, nop), &Loggers{Main: nop, Auth: nop, Lab: nop, Board: nop}, cfg)
	s.Echo = e
}

func (s *LabRouterTestSuite) token(role string) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.JwtCustomClaim{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-" + role,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return signed
}

func (s *LabRouterTestSuite) do(method, path, role string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if role != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+s.token(role))
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get(echo.HeaderContentType) == echo.MIMEApplicationJSON ||
		rec.Header().Get(echo.HeaderContentType) == echo.MIMEApplicationJSONCharsetUTF8 {
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *LabRouterTestSuite) register(digital bool) orderCard {
	rec, env := s.do(http.MethodPost, "/api/lab/orders", constants.RoleClinicStaff, map[string]interface{}{
		"is_digital":  digital,
		"priority":    "high",
		"clinic_name": "Клиника на Ленина",
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var card orderCard
	s.Require().NoError(json.Unmarshal(env.Body, &card))
	return card
}

func (s *LabRouterTestSuite) TestUnauthorized() {
	rec, _ := s.do(http.MethodGet, "/api/lab/board", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *LabRouterTestSuite) TestRegisterValidation() {
	rec, _ := s.do(http.MethodPost, "/api/lab/orders", constants.RoleClinicStaff, map[string]interface{}{"priority": "asap"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/lab/orders/not-a-uuid", constants.RoleDesigner, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *LabRouterTestSuite) TestTransitionFlow() {
	card := s.register(true)
	s.Equal("clinic_pending", card.Stage)
	base := "/api/lab/orders/" + card.ID

	rec, env := s.do(http.MethodGet, base+"/next-stage", constants.RoleDesigner, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var conf workflow.Confirmation
	s.Require().NoError(json.Unmarshal(env.Body, &conf))
	s.Equal(constants.StageIncomeValidation, conf.TargetStage)
	s.Equal([]constants.LabStage{constants.StageDigitalPicking}, conf.Skipped)

	rec, _ = s.do(http.MethodPost, base+"/transitions", constants.RoleDesigner, map[string]interface{}{
		"target_stage": "income_validation",
	})
	s.Equal(http.StatusBadRequest, rec.Code, "без версии смена этапа не принимается")

	rec, _ = s.do(http.MethodPost, base+"/transitions", constants.RoleDesigner, map[string]interface{}{
		"target_stage": "income_validation", "expected_version": card.Version + 5,
	})
	s.Equal(http.StatusConflict, rec.Code)

	rec, env = s.do(http.MethodPost, base+"/transitions", constants.RoleDesigner, map[string]interface{}{
		"target_stage": "income_validation", "expected_version": card.Version,
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().NoError(json.Unmarshal(env.Body, &card))
	s.Equal("income_validation", card.Stage)
	s.Equal(int64(2), card.Version)

	rec, _ = s.do(http.MethodPost, base+"/transitions", constants.RoleDesigner, map[string]interface{}{"target_stage": "qa", "expected_version": card.Version})
	s.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec, _ = s.do(http.MethodPost, base+"/return", constants.RoleDesigner, map[string]interface{}{"justification": " ", "expected_version": card.Version})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPost, base+"/return", constants.RoleDesigner, map[string]interface{}{"justification": "нет снимков"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, env = s.do(http.MethodPost, base+"/return", constants.RoleDesigner, map[string]interface{}{"justification": "нет снимков", "expected_version": card.Version})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().NoError(json.Unmarshal(env.Body, &card))
	s.Equal("digital_picking", card.Stage)

	rec, env = s.do(http.MethodGet, base+"/history", constants.RoleDesigner, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var history struct {
		Records []struct {
			Kind string `json:"kind"`
		} `json:"records"`
	}
	s.Require().NoError(json.Unmarshal(env.Body, &history))
	s.Require().Len(history.Records, 2)
	s.Equal("FORWARD", history.Records[0].Kind)
	s.Equal("BACKWARD", history.Records[1].Kind)
}

func (s *LabRouterTestSuite) TestTimerAndPause() {
	card := s.register(false)
	base := "/api/lab/orders/" + card.ID

	rec, _ := s.do(http.MethodPost, base+"/timer/toggle", constants.RoleProductionTech, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPost, base+"/pause", constants.RoleProductionTech, map[string]interface{}{"reason": "ждем клинику"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPost, base+"/pause", constants.RoleProductionTech, map[string]interface{}{"reason": "повторно"})
	s.Equal(http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/lab/pauses/pending", constants.RoleProductionTech, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, env := s.do(http.MethodGet, "/api/lab/pauses/pending", constants.RoleLabCoordinator, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var pending []orderCard
	s.Require().NoError(json.Unmarshal(env.Body, &pending))
	s.Require().Len(pending, 1)

	rec, _ = s.do(http.MethodPost, base+"/pause/approve", constants.RoleProductionTech, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, env = s.do(http.MethodPost, base+"/pause/approve", constants.RoleLabAdmin, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Require().NoError(json.Unmarshal(env.Body, &card))
	s.True(card.Pause.IsPaused)

	rec, _ = s.do(http.MethodPost, base+"/resume", constants.RoleProductionTech, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = s.do(http.MethodPost, base+"/resume", constants.RoleProductionTech, nil)
	s.Equal(http.StatusConflict, rec.Code)
}

func (s *LabRouterTestSuite) TestBoardAndExport() {
	s.register(false)
	s.register(true)

	rec, env := s.do(http.MethodGet, "/api/lab/board?digital=true", constants.RoleDesigner, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var board struct {
		Total int `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(env.Body, &board))
	s.Equal(1, board.Total)

	rec, _ = s.do(http.MethodGet, "/api/lab/board?priority=asap", constants.RoleDesigner, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/lab/board/stats", constants.RoleDesigner, nil)
	s.Equal(http.StatusOK, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/lab/board/export", constants.RoleDesigner, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get(echo.HeaderContentDisposition), "lab_board_")
	s.NotZero(rec.Body.Len())
}

func (s *LabRouterTestSuite) TestProductionChart() {
	rec, env := s.do(http.MethodGet, "/api/lab/board/production?days=14", constants.RoleLabCoordinator, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var chart struct {
		Days []struct {
			Day            string `json:"day"`
			CompletedCount int    `json:"completed_count"`
		} `json:"days"`
		Total int `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(env.Body, &chart))
	s.Len(chart.Days, 14)
	s.Zero(chart.Total)

	rec, _ = s.do(http.MethodGet, "/api/lab/board/production?days=abc", constants.RoleLabCoordinator, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/lab/board/production?days=365", constants.RoleLabCoordinator, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *LabRouterTestSuite) TestStageSLAConfig() {
	path := fmt.Sprintf("/api/lab/sla/stages/%s", constants.StageQA)
	body := map[string]interface{}{"target_hours": 4, "warning_hours": 3, "is_active": true}

	rec, _ := s.do(http.MethodPut, path, constants.RoleDesigner, body)
	s.Equal(http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodPut, path, constants.RoleLabCoordinator, body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec, env := s.do(http.MethodGet, "/api/lab/sla/stages", constants.RoleDesigner, nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var configs []struct {
		Stage string `json:"stage"`
	}
	s.Require().NoError(json.Unmarshal(env.Body, &configs))
	s.Len(configs, 2)
}

func TestLabRouterTestSuite(t *testing.T) {
	suite.Run(t, new(LabRouterTestSuite))
}
