package flows

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/logibot/flow"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
)

// Weight limits for one order, in kilograms. The bounds themselves are
// rejected: accepted weights are 2001..21000.
const (
	minOrderWeightKg = 2000
	maxOrderWeightKg = 21000
)

// VehicleFinder looks up free vehicles able to carry a load in tons.
type VehicleFinder interface {
	FindAvailableWithCapacity(ctx context.Context, tons float64) ([]storage.Vehicle, error)
}

// OrderSaver persists a new order.
type OrderSaver interface {
	Create(ctx context.Context, o *storage.Order) error
}

// CustomerResolver resolves the authenticated customer behind an actor.
type CustomerResolver interface {
	Customer(ctx context.Context, actor session.ActorID) (storage.Customer, error)
}

// OrderData collects the answers of the order creation dialog.
type OrderData struct {
	Address  string
	WeightKg int
	Vehicle  *storage.Vehicle
}

const (
	stepOrderAddress      flow.Step = "ADDRESS"
	stepOrderWeight       flow.Step = "WEIGHT"
	stepOrderConfirmation flow.Step = "CONFIRMATION"
)

// NewOrderCreation builds the order creation flow engine. A nil clock
// defaults to time.Now.
func NewOrderCreation(vehicles VehicleFinder, orders OrderSaver, customers CustomerResolver, now session.Clock) *flow.Engine[OrderData] {
	if now == nil {
		now = time.Now
	}
	return flow.New(flow.Definition[OrderData]{
		Kind:      flow.KindOrderCreation,
		Start:     stepOrderAddress,
		StartText: "🚚 Создание нового заказа\n\n📍 Введите адрес доставки:",
		Steps: map[flow.Step]flow.Transition[OrderData]{
			stepOrderAddress: func(_ context.Context, _ session.ActorID, d *OrderData, input string) flow.Outcome {
				address := strings.TrimSpace(input)
				if address == "" {
					return flow.Reprompt("❌ Адрес не может быть пустым. Пожалуйста, введите корректный адрес доставки:")
				}
				if len(address) < 5 {
					return flow.Reprompt("❌ Адрес слишком короткий. Пожалуйста, введите полный адрес доставки:")
				}
				d.Address = address
				return flow.Advance(stepOrderWeight, "✅ Адрес доставки сохранен.\n\n📦 Теперь введите вес посылки в килограммах (целое число):")
			},
			stepOrderWeight: func(ctx context.Context, _ session.ActorID, d *OrderData, input string) flow.Outcome {
				weight, err := strconv.Atoi(strings.TrimSpace(input))
				if err != nil {
					return flow.Reprompt("❌ Неверный формат веса. Пожалуйста, введите целое число (вес в килограммах):")
				}
				if weight <= minOrderWeightKg {
					return flow.Reprompt("❌ Минимальный вес заказа 2000 кг:")
				}
				if weight > maxOrderWeightKg {
					return flow.Reprompt("❌ Вес слишком большой. Максимальный вес - 21000 кг. Введите меньший вес:")
				}
				d.WeightKg = weight

				available, err := vehicles.FindAvailableWithCapacity(ctx, float64(weight)/1000.0)
				if err != nil {
					return flow.Reprompt("❌ Произошла ошибка. Попробуйте еще раз:")
				}
				if len(available) == 0 {
					d.Vehicle = nil
					return flow.Advance(stepOrderConfirmation, noVehicleText(d))
				}
				// Highest capacity first; take the best match.
				d.Vehicle = &available[0]
				return flow.Advance(stepOrderConfirmation, vehicleFoundText(d))
			},
			stepOrderConfirmation: func(_ context.Context, _ session.ActorID, _ *OrderData, input string) flow.Outcome {
				switch strings.ToLower(strings.TrimSpace(input)) {
				case "да", "yes", "y", "д":
					return flow.Complete()
				case "нет", "no", "n", "н":
					return flow.Abort("❌ Создание заказа отменено.")
				default:
					return flow.Reprompt("❌ Пожалуйста, ответьте 'да' или 'нет':")
				}
			},
		},
		CancelText: "❌ Создание заказа отменено.",
		FailText:   "❌ Произошла ошибка при создании заказа. Пожалуйста, попробуйте позже.",
		OnComplete: func(ctx context.Context, actor session.ActorID, d *OrderData) (string, error) {
			customer, err := customers.Customer(ctx, actor)
			if err != nil {
				return "", err
			}
			order := storage.Order{
				CreatedAt:       now(),
				TotalWeight:     d.WeightKg,
				Status:          storage.OrderStatusCreated,
				DeliveryAddress: d.Address,
				CustomerID:      customer.ID,
			}
			if d.Vehicle != nil {
				order.VehicleID = sql.NullInt64{Int64: int64(d.Vehicle.ID), Valid: true}
			}
			if err := orders.Create(ctx, &order); err != nil {
				return "", err
			}
			return orderSuccessText(order, d.Vehicle == nil), nil
		},
	})
}

func noVehicleText(d *OrderData) string {
	return fmt.Sprintf(
		"⚠️ Внимание! На данный момент нет свободного транспорта для заказа весом %d кг.\n\n"+
			"📋 Данные заказа:\n"+
			"• Адрес доставки: %s\n"+
			"• Вес: %d кг\n"+
			"• Транспорт: будет назначен позже\n\n"+
			"Вы хотите создать заказ? (да/нет)",
		d.WeightKg, d.Address, d.WeightKg,
	)
}

func vehicleFoundText(d *OrderData) string {
	return fmt.Sprintf(
		"✅ Найден подходящий транспорт!\n\n"+
			"📋 Данные заказа:\n"+
			"• Адрес доставки: %s\n"+
			"• Вес: %d кг\n"+
			"• Транспорт: %s (%s, грузоподъемность: %.1f т)\n\n"+
			"Вы подтверждаете создание заказа? (да/нет)",
		d.Address, d.WeightKg,
		d.Vehicle.Model, d.Vehicle.LicensePlate, d.Vehicle.CapacityTon,
	)
}

func orderSuccessText(order storage.Order, pendingVehicle bool) string {
	text := fmt.Sprintf(
		"✅ Заказ успешно создан!\n\n"+
			"📦 Номер заказа: #%d\n"+
			"📍 Адрес доставки: %s\n"+
			"⚖️ Вес: %d кг\n"+
			"📊 Статус: %s\n"+
			"📅 Дата создания: %s\n\n"+
			"Вы можете отслеживать статус заказа в разделе 'Мои заказы'.",
		order.ID,
		order.DeliveryAddress,
		order.TotalWeight,
		order.Status,
		order.CreatedAt.Format("02.01.2006 15:04"),
	)
	if pendingVehicle {
		text += "\n\n⚠️ Транспорт для заказа будет назначен позже менеджером."
	}
	return text
}
