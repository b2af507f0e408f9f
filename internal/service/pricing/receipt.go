package pricing

import (
	"context"
	"time"

	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/metrics"
	"github.com/dumeirei/house-booking-backend/internal/models"
)

// PriceTableSource 提供日价格表
type PriceTableSource interface {
	Table(ctx context.Context, houses []*models.House, from, to time.Time) (*PriceTable, error)
}

// ReceiptRequest 账单计算请求
type ReceiptRequest struct {
	House        *models.House
	CheckIn      time.Time
	CheckOut     time.Time
	TotalPersons int
	PromoCode    *models.PromoCode
	// BillID 重新计算已有账单时填写，用于从优惠码使用次数中排除自身
	BillID int64
	// ClientID 已知客户时填写，用于个人优惠码校验
	ClientID *int64
}

// Receipt 账单计算结果
type Receipt struct {
	ChronologicalPositions    models.Positions `json:"chronological_positions"`
	NonChronologicalPositions models.Positions `json:"non_chronological_positions"`
	Subtotal                  int64            `json:"subtotal"`
	Total                     int64            `json:"total"`
	Nights                    int              `json:"nights"`
	PromoCodeID               *int64           `json:"-"`
}

// ApplyTo 把计算结果写入账单
func (r *Receipt) ApplyTo(bill *models.Bill) {
	bill.ChronologicalPositions = r.ChronologicalPositions
	bill.NonChronologicalPositions = r.NonChronologicalPositions
	bill.Total = r.Total
	bill.PromoCodeID = r.PromoCodeID
}

// ReceiptBuilder 组合日价格、附加费、加人费与优惠码生成账单明细
type ReceiptBuilder struct {
	tariff *Tariff
	prices PriceTableSource
	promo  *PromoValidator
}

// NewReceiptBuilder 创建账单计算器
func NewReceiptBuilder(tariff *Tariff, prices PriceTableSource, promo *PromoValidator) *ReceiptBuilder {
	return &ReceiptBuilder{tariff: tariff, prices: prices, promo: promo}
}

// WithPromoValidator 返回使用另一个优惠码校验器的副本
func (b *ReceiptBuilder) WithPromoValidator(promo *PromoValidator) *ReceiptBuilder {
	cp := *b
	cp.promo = promo
	return &cp
}

// Tariff 计价规则
func (b *ReceiptBuilder) Tariff() *Tariff {
	return b.tariff
}

// Validate 校验入住人数与入住/退房时间，返回两端时刻的附加费比例
func (b *ReceiptBuilder) Validate(house *models.House, checkIn, checkOut time.Time, totalPersons int) (inFraction, outFraction float64, err error) {
	if totalPersons < 1 || totalPersons > house.MaxPersonsAmount {
		return 0, 0, errors.ErrIncorrectOccupancy.WithMessagef("入住人数应在 1 到 %d 之间", house.MaxPersonsAmount)
	}
	if !checkIn.Before(checkOut) {
		return 0, 0, errors.ErrIncorrectDatetimes
	}
	if !b.tariff.DateOf(checkOut).After(b.tariff.DateOf(checkIn)) {
		return 0, 0, errors.ErrIncorrectDatetimes.WithMessage("退房日期必须晚于入住日期")
	}

	inClock, ok := clockOf(b.tariff.Local(checkIn))
	if ok {
		inFraction, ok = b.tariff.CheckIn.Surcharge(inClock)
	}
	if !ok {
		return 0, 0, errors.ErrIncorrectTime.WithMessagef("入住时刻只能为: %s", b.tariff.CheckIn.TimesString())
	}

	outClock, ok := clockOf(b.tariff.Local(checkOut))
	if ok {
		outFraction, ok = b.tariff.CheckOut.Surcharge(outClock)
	}
	if !ok {
		return 0, 0, errors.ErrIncorrectTime.WithMessagef("退房时刻只能为: %s", b.tariff.CheckOut.TimesString())
	}
	return inFraction, outFraction, nil
}

// Build 计算账单。
// 每晚按"夜晚归属于次日"定价并计入加人费；提前入住和延迟退房按当日价格比例收取；
// 加人费汇总项仅供展示；优惠码以差额形式计入
func (b *ReceiptBuilder) Build(ctx context.Context, req *ReceiptRequest) (*Receipt, error) {
	house := req.House
	inFraction, outFraction, err := b.Validate(house, req.CheckIn, req.CheckOut, req.TotalPersons)
	if err != nil {
		return nil, err
	}

	inDate := b.tariff.DateOf(req.CheckIn)
	outDate := b.tariff.DateOf(req.CheckOut)

	table, err := b.prices.Table(ctx, []*models.House{house}, inDate, outDate)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	receipt := &Receipt{}
	extraPerNight := house.ExtraPersonsPrice(req.TotalPersons)

	if inFraction > 0 {
		if amount := RoundHundreds(inFraction * float64(table.Price(house, inDate))); amount != 0 {
			receipt.ChronologicalPositions = append(receipt.ChronologicalPositions, models.EarlyCheckInPosition{
				Date:   inDate,
				Time:   b.tariff.Local(req.CheckIn).Format("15:04"),
				Amount: amount,
			})
		}
	}

	for d := inDate.AddDate(0, 0, 1); !d.After(outDate); d = d.AddDate(0, 0, 1) {
		receipt.ChronologicalPositions = append(receipt.ChronologicalPositions, models.NightPosition{
			StartDate: d.AddDate(0, 0, -1),
			EndDate:   d,
			Amount:    table.Price(house, d) + extraPerNight,
		})
		receipt.Nights++
	}

	if outFraction > 0 {
		if amount := RoundHundreds(outFraction * float64(table.Price(house, outDate))); amount != 0 {
			receipt.ChronologicalPositions = append(receipt.ChronologicalPositions, models.LateCheckOutPosition{
				Date:   outDate,
				Time:   b.tariff.Local(req.CheckOut).Format("15:04"),
				Amount: amount,
			})
		}
	}

	if extra := house.ExtraPersons(req.TotalPersons); extra > 0 {
		receipt.NonChronologicalPositions = append(receipt.NonChronologicalPositions, models.ExtraPersonsPosition{
			Count:          extra,
			PricePerPerson: house.PricePerExtraPerson,
			Nights:         receipt.Nights,
			Summary:        extraPerNight * int64(receipt.Nights),
		})
	}

	receipt.Subtotal = receipt.ChronologicalPositions.Sum() + receipt.NonChronologicalPositions.Sum()
	if req.PromoCode != nil {
		if err := b.applyPromoCode(ctx, req, receipt); err != nil {
			return nil, err
		}
	}

	receipt.Total = receipt.ChronologicalPositions.Sum() + receipt.NonChronologicalPositions.Sum()
	if receipt.Total < b.tariff.MinBillTotal {
		return nil, errors.ErrIncorrectDatetimes.WithMessage("住宿时长过短，无法计费")
	}

	metrics.ReceiptsBuilt.Inc()
	return receipt, nil
}

func (b *ReceiptBuilder) applyPromoCode(ctx context.Context, req *ReceiptRequest, receipt *Receipt) error {
	if b.promo == nil {
		return errors.ErrInternalError.WithMessage("未配置优惠码校验器")
	}

	sum := receipt.Subtotal
	if err := b.promo.CheckAvailability(ctx, req.PromoCode, req.BillID, req.ClientID, sum); err != nil {
		return err
	}

	discounted, err := ApplyPromoCode(req.PromoCode, sum, b.tariff.MinBillTotal)
	if err != nil {
		return err
	}
	if delta := discounted - sum; delta != 0 {
		receipt.NonChronologicalPositions = append(receipt.NonChronologicalPositions, models.PromoCodePosition{
			Code:   req.PromoCode.Code,
			Amount: delta,
		})
	}
	id := req.PromoCode.ID
	receipt.PromoCodeID = &id
	return nil
}
