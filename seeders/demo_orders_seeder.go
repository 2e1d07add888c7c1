package seeders

import (
	"context"
	"log"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/services"
	"lab-workflow/pkg/constants"
	"lab-workflow/pkg/utils"
)

var demoOrders = []dto.RegisterLabOrderDTO{
	{Priority: string(constants.PriorityUrgent), IsDigital: true, ClinicName: utils.ToPtr("Стоматология «Улыбка»"), ProductName: utils.ToPtr("Коронка цирконий"), DoctorName: utils.ToPtr("Иванова А.С.")},
	{Priority: string(constants.PriorityNormal), ClinicName: utils.ToPtr("Дентал Плюс"), ProductName: utils.ToPtr("Мост 3 ед."), ItemSLADays: []int{3, 5}},
	{Priority: string(constants.PriorityHigh), IsDigital: true, ClinicName: utils.ToPtr("Клиника на Ленина"), ProductName: utils.ToPtr("Винир E.max")},
	{Priority: string(constants.PriorityLow), ClinicName: utils.ToPtr("Дентал Плюс"), ProductName: utils.ToPtr("Каппа"), SLABusinessDays: 7},
}

// SeedDemoOrders регистрирует несколько заказов через обычный сервис
// и двигает часть из них по конвейеру, чтобы доска не была пустой.
func SeedDemoOrders(ctx context.Context, svc services.LabWorkflowServiceInterface) error {
	log.Println("  - Создание демонстрационных заказов...")
	actor := services.Actor{ID: "seeder", Role: constants.RoleLabAdmin}

	for i, in := range demoOrders {
		order, err := svc.RegisterOrder(ctx, in, actor)
		if err != nil {
			return err
		}
		// i-й заказ проходит i шагов вперед
		for step := 0; step < i*2; step++ {
			conf, err := svc.RequestForwardTransition(ctx, order.ID, actor)
			if err != nil {
				return err
			}
			if order, err = svc.CommitTransition(ctx, order.ID, conf.TargetStage, actor, "", conf.Version); err != nil {
				return err
			}
		}
		log.Printf("    - Заказ %s на этапе %s", order.ID, order.Stage)
	}
	return nil
}
