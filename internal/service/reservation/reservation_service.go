// Package reservation 预订的报价、提交、查询与运营维护
package reservation

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/house-booking-backend/internal/common/database"
	"github.com/dumeirei/house-booking-backend/internal/common/errors"
	"github.com/dumeirei/house-booking-backend/internal/common/logger"
	"github.com/dumeirei/house-booking-backend/internal/common/metrics"
	"github.com/dumeirei/house-booking-backend/internal/common/qrcode"
	"github.com/dumeirei/house-booking-backend/internal/common/tracing"
	"github.com/dumeirei/house-booking-backend/internal/common/utils"
	"github.com/dumeirei/house-booking-backend/internal/models"
	"github.com/dumeirei/house-booking-backend/internal/repository"
	"github.com/dumeirei/house-booking-backend/internal/service/availability"
	"github.com/dumeirei/house-booking-backend/internal/service/notification"
	"github.com/dumeirei/house-booking-backend/internal/service/pricing"
)

// slugAttempts 生成不重复短码的最大尝试次数
const slugAttempts = 5

// Deps 预订服务依赖
type Deps struct {
	DB        *gorm.DB
	Tariff    *pricing.Tariff
	Checker   *availability.Checker
	Receipts  *pricing.ReceiptBuilder
	Promos    *pricing.PromoValidator
	Notifier  *notification.Notifier // 可为 nil
	QRCode    *qrcode.Generator
	PublicURL string
}

// Service 预订服务
type Service struct {
	db              *gorm.DB
	tariff          *pricing.Tariff
	houseRepo       *repository.HouseRepository
	reservationRepo *repository.ReservationRepository
	billRepo        *repository.BillRepository
	promoRepo       *repository.PromoCodeRepository
	checker         *availability.Checker
	receipts        *pricing.ReceiptBuilder
	promos          *pricing.PromoValidator
	notifier        *notification.Notifier
	qr              *qrcode.Generator
	publicURL       string
	now             func() time.Time
}

// NewService 创建预订服务
func NewService(deps Deps) *Service {
	qr := deps.QRCode
	if qr == nil {
		qr = qrcode.NewGenerator()
	}
	return &Service{
		db:              deps.DB,
		tariff:          deps.Tariff,
		houseRepo:       repository.NewHouseRepository(deps.DB),
		reservationRepo: repository.NewReservationRepository(deps.DB),
		billRepo:        repository.NewBillRepository(deps.DB),
		promoRepo:       repository.NewPromoCodeRepository(deps.DB),
		checker:         deps.Checker,
		receipts:        deps.Receipts,
		promos:          deps.Promos,
		notifier:        deps.Notifier,
		qr:              qr,
		publicURL:       strings.TrimRight(deps.PublicURL, "/"),
		now:             time.Now,
	}
}

// WithClock 替换时钟，用于测试
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CheckAvailability 房屋在 [checkIn, checkOut) 内是否可预订
func (s *Service) CheckAvailability(ctx context.Context, houseID int64, checkIn, checkOut time.Time) (bool, error) {
	if !checkIn.Before(checkOut) {
		return false, errors.ErrIncorrectDatetimes
	}
	if _, err := s.getHouse(ctx, houseID); err != nil {
		return false, err
	}
	free, err := s.checker.IsHouseFree(ctx, houseID, checkIn, checkOut)
	if err != nil {
		return false, errors.ErrDatabaseError.WithError(err)
	}
	return free, nil
}

// Options 房屋的人数限制与可选入住/退房时刻
func (s *Service) Options(ctx context.Context, houseID int64) (*Options, error) {
	house, err := s.getActiveHouse(ctx, houseID)
	if err != nil {
		return nil, err
	}
	return &Options{
		HouseID:             house.ID,
		BasePersonsAmount:   house.BasePersonsAmount,
		MaxPersonsAmount:    house.MaxPersonsAmount,
		PricePerExtraPerson: house.PricePerExtraPerson,
		CheckInTimes:        timeOptions(s.tariff.CheckIn),
		CheckOutTimes:       timeOptions(s.tariff.CheckOut),
	}, nil
}

func timeOptions(tt pricing.TimeTable) TimeOptions {
	times := tt.Times()
	opts := TimeOptions{Default: tt.Default.String(), Times: make([]string, len(times))}
	for i, c := range times {
		opts.Times[i] = c.String()
	}
	return opts
}

// Quote 计算报价，不做持久化。此时客户未知，跳过个人优惠码的客户校验
func (s *Service) Quote(ctx context.Context, req *QuoteRequest) (*pricing.Receipt, error) {
	house, err := s.getActiveHouse(ctx, req.HouseID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNotPast(req.CheckIn); err != nil {
		return nil, err
	}
	promo, err := s.resolvePromoCode(ctx, req.PromoCode)
	if err != nil {
		return nil, err
	}
	return s.receipts.Build(ctx, &pricing.ReceiptRequest{
		House:        house,
		CheckIn:      req.CheckIn,
		CheckOut:     req.CheckOut,
		TotalPersons: req.TotalPersonsAmount,
		PromoCode:    promo,
	})
}

// Commit 提交预订：预订与账单在同一事务内写入
func (s *Service) Commit(ctx context.Context, req *CommitRequest) (info *ReservationInfo, err error) {
	ctx, span := tracing.Start(ctx, "reservation.commit", tracing.WithHouseID(req.HouseID))
	defer span.End()
	defer func() {
		metrics.ReservationsCommitted.WithLabelValues(commitResult(err)).Inc()
		if err != nil {
			tracing.SetError(ctx, err)
		}
	}()

	// 1. 校验客户信息
	if err := validateClient(&req.Client); err != nil {
		return nil, err
	}

	// 2. 校验房屋、日期与优惠码
	house, err := s.getActiveHouse(ctx, req.HouseID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNotPast(req.CheckIn); err != nil {
		return nil, err
	}
	promo, err := s.resolvePromoCode(ctx, req.PromoCode)
	if err != nil {
		return nil, err
	}

	// 3. 计算账单。个人优惠码的客户校验在事务内完成
	receipt, err := s.receipts.Build(ctx, &pricing.ReceiptRequest{
		House:        house,
		CheckIn:      req.CheckIn,
		CheckOut:     req.CheckOut,
		TotalPersons: req.TotalPersonsAmount,
		PromoCode:    promo,
	})
	if err != nil {
		return nil, err
	}

	slug, err := s.newSlug(ctx)
	if err != nil {
		return nil, err
	}

	houseID := house.ID
	reservation := &models.Reservation{
		Slug:               slug,
		HouseID:            &houseID,
		CheckInAt:          req.CheckIn,
		CheckOutAt:         req.CheckOut,
		TotalPersonsAmount: req.TotalPersonsAmount,
		PreferredContact:   req.PreferredContact,
		Comment:            req.Comment,
	}
	bill := &models.Bill{}
	receipt.ApplyTo(bill)

	// 4. 加锁、复查可用性，按邮箱登记客户，复查优惠码，写入预订与账单
	var client *models.Client
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.LockHouse(tx, house.ID); err != nil {
			return err
		}

		free, err := s.checker.WithTx(tx).IsHouseFree(ctx, house.ID, req.CheckIn, req.CheckOut)
		if err != nil {
			return err
		}
		if !free {
			return errors.ErrReservationConflict
		}

		client, err = repository.NewClientRepository(tx).UpsertByEmail(ctx,
			strings.TrimSpace(req.Client.Email),
			strings.TrimSpace(req.Client.FirstName),
			strings.TrimSpace(req.Client.LastName),
		)
		if err != nil {
			return err
		}
		reservation.ClientID = &client.ID

		if promo != nil {
			if err := database.LockPromoCode(tx, promo.ID); err != nil {
				return err
			}
			txPromos := s.promos.WithUsage(repository.NewBillRepository(tx))
			if err := txPromos.CheckAvailability(ctx, promo, 0, &client.ID, receipt.Subtotal); err != nil {
				return err
			}
		}

		if err := repository.NewReservationRepository(tx).Create(ctx, reservation); err != nil {
			return err
		}
		bill.ReservationID = reservation.ID
		return repository.NewBillRepository(tx).Create(ctx, bill)
	})
	if err != nil {
		return nil, mapPersistError(err)
	}

	reservation.House = house
	reservation.Client = client
	bill.PromoCode = promo
	reservation.Bill = bill
	info = s.toInfo(reservation)

	logger.WithContext(ctx).Info("预订已创建",
		logger.ReservationSlug(slug),
		logger.HouseID(house.ID),
		logger.Int64("total", bill.Total),
	)

	// 5. 通知（不等待）
	if s.notifier != nil {
		s.notifier.ReservationCreated(ctx, s.message(reservation))
	}
	return info, nil
}

// GetBySlug 按短码查询预订
func (s *Service) GetBySlug(ctx context.Context, slug string) (*ReservationInfo, error) {
	reservation, err := s.reservationRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrReservationNotFound)
	}
	return s.toInfo(reservation), nil
}

// QRCode 预订查询地址的二维码 PNG
func (s *Service) QRCode(ctx context.Context, slug string) ([]byte, error) {
	exists, err := s.reservationRepo.SlugExists(ctx, slug)
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	if !exists {
		return nil, errors.ErrReservationNotFound
	}
	png, err := s.qr.GeneratePNG(s.lookupURL(slug))
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}
	return png, nil
}

// GetByID 运营按 ID 查询预订
func (s *Service) GetByID(ctx context.Context, id int64) (*ReservationInfo, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrReservationNotFound)
	}
	return s.toInfo(reservation), nil
}

// List 运营分页查询预订
func (s *Service) List(ctx context.Context, page utils.Pagination, filter repository.ReservationFilter) ([]*ReservationInfo, int64, error) {
	page.Normalize()
	reservations, total, err := s.reservationRepo.List(ctx, page.GetOffset(), page.GetLimit(), filter)
	if err != nil {
		return nil, 0, errors.ErrDatabaseError.WithError(err)
	}
	list := make([]*ReservationInfo, len(reservations))
	for i, r := range reservations {
		list[i] = s.toInfo(r)
	}
	return list, total, nil
}

// Cancel 取消预订，释放其占用的时段
func (s *Service) Cancel(ctx context.Context, id int64) error {
	if err := s.reservationRepo.Cancel(ctx, id); err != nil {
		return notFoundOr(err, errors.ErrReservationNotFound)
	}
	logger.WithContext(ctx).Info("预订已取消", logger.ReservationID(id))
	return nil
}

// Update 运营修改预订。日期或人数变化时排除自身复查可用性；账单保持不变，需要时调用 RecomputeBill
func (s *Service) Update(ctx context.Context, id int64, req *UpdateRequest) (*ReservationInfo, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrReservationNotFound)
	}
	if reservation.Cancelled {
		return nil, errors.ErrReservationNotFound.WithMessage("预订已取消")
	}
	if reservation.House == nil {
		return nil, errors.ErrHouseNotFound
	}

	if req.CheckIn != nil {
		if !req.CheckIn.Equal(reservation.CheckInAt) {
			reservation.RemindedAt = nil
		}
		reservation.CheckInAt = *req.CheckIn
	}
	if req.CheckOut != nil {
		reservation.CheckOutAt = *req.CheckOut
	}
	if req.TotalPersonsAmount != nil {
		reservation.TotalPersonsAmount = *req.TotalPersonsAmount
	}
	if req.PreferredContact != nil {
		reservation.PreferredContact = *req.PreferredContact
	}
	if req.Comment != nil {
		reservation.Comment = *req.Comment
	}

	if _, _, err := s.receipts.Validate(reservation.House, reservation.CheckInAt, reservation.CheckOutAt, reservation.TotalPersonsAmount); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.LockHouse(tx, reservation.House.ID); err != nil {
			return err
		}
		free, err := s.checker.WithTx(tx).IsHouseFreeExcluding(ctx, reservation.House.ID,
			reservation.CheckInAt, reservation.CheckOutAt, reservation.ID)
		if err != nil {
			return err
		}
		if !free {
			return errors.ErrReservationConflict
		}
		return repository.NewReservationRepository(tx).Update(ctx, reservation)
	})
	if err != nil {
		return nil, mapPersistError(err)
	}
	return s.toInfo(reservation), nil
}

// RecomputeBill 按当前价格重新计算未支付的账单，沿用账单上的优惠码
func (s *Service) RecomputeBill(ctx context.Context, id int64) (*ReservationInfo, error) {
	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrReservationNotFound)
	}
	if reservation.House == nil {
		return nil, errors.ErrHouseNotFound
	}
	bill := reservation.Bill
	if bill == nil {
		bill = &models.Bill{ReservationID: reservation.ID}
	}
	if bill.Paid {
		return nil, errors.ErrBillPaid
	}

	receipt, err := s.receipts.Build(ctx, &pricing.ReceiptRequest{
		House:        reservation.House,
		CheckIn:      reservation.CheckInAt,
		CheckOut:     reservation.CheckOutAt,
		TotalPersons: reservation.TotalPersonsAmount,
		PromoCode:    bill.PromoCode,
		BillID:       bill.ID,
		ClientID:     reservation.ClientID,
	})
	if err != nil {
		return nil, err
	}
	receipt.ApplyTo(bill)

	if bill.ID == 0 {
		err = s.billRepo.Create(ctx, bill)
	} else {
		err = s.billRepo.Update(ctx, bill)
	}
	if err != nil {
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	reservation.Bill = bill

	logger.WithContext(ctx).Info("账单已重新计算",
		logger.ReservationID(reservation.ID),
		logger.Int64("total", bill.Total),
	)
	return s.toInfo(reservation), nil
}

// MarkPaid 标记账单已支付
func (s *Service) MarkPaid(ctx context.Context, id int64) (*ReservationInfo, error) {
	bill, err := s.billRepo.GetByReservationID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrReservationNotFound)
	}
	if bill.Paid {
		return nil, errors.ErrBillPaid.WithMessage("账单已支付")
	}
	if err := s.billRepo.MarkPaid(ctx, bill.ID, s.now()); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrBillPaid.WithMessage("账单已支付")
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return s.GetByID(ctx, id)
}

// RemindUnpaid 为入住时间落在 window 内、未支付且未取消的预订发送提醒，返回成功发送的数量
func (s *Service) RemindUnpaid(ctx context.Context, window time.Duration, limit int) (int, error) {
	if s.notifier == nil {
		return 0, nil
	}
	now := s.now()
	reservations, err := s.reservationRepo.ListUnpaidUpcoming(ctx, now, now.Add(window), limit)
	if err != nil {
		return 0, errors.ErrDatabaseError.WithError(err)
	}

	sent := 0
	for _, r := range reservations {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.notifier.Reminder(ctx, s.message(r)); err != nil {
			continue
		}
		sent++
		if err := s.reservationRepo.MarkReminded(ctx, r.ID, now); err != nil {
			logger.WithContext(ctx).Warn("记录提醒时间失败", logger.ReservationSlug(r.Slug), logger.Err(err))
		}
	}
	return sent, nil
}

func (s *Service) getHouse(ctx context.Context, id int64) (*models.House, error) {
	house, err := s.houseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrHouseNotFound)
	}
	return house, nil
}

func (s *Service) getActiveHouse(ctx context.Context, id int64) (*models.House, error) {
	house, err := s.getHouse(ctx, id)
	if err != nil {
		return nil, err
	}
	if !house.Active {
		return nil, errors.ErrHouseInactive
	}
	return house, nil
}

// checkNotPast 入住日期必须晚于今天（计价时区）
func (s *Service) checkNotPast(checkIn time.Time) error {
	if !s.tariff.DateOf(checkIn).After(s.tariff.DateOf(s.now())) {
		return errors.ErrIncorrectDatetimes.WithMessage("入住日期必须晚于今天")
	}
	return nil
}

func (s *Service) resolvePromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	if code == "" {
		return nil, nil
	}
	promo, err := s.promoRepo.GetByCode(ctx, code)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPromoCodeInvalid.WithMessagef("优惠码 %s 不存在", code)
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return promo, nil
}

func (s *Service) newSlug(ctx context.Context) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		slug := utils.GenerateSlug(utils.SlugLength)
		exists, err := s.reservationRepo.SlugExists(ctx, slug)
		if err != nil {
			return "", errors.ErrDatabaseError.WithError(err)
		}
		if !exists {
			return slug, nil
		}
	}
	return "", errors.ErrInternalError.WithMessage("无法生成预订短码")
}

func (s *Service) lookupURL(slug string) string {
	return s.publicURL + "/api/v1/reservations/" + slug
}

func (s *Service) toInfo(r *models.Reservation) *ReservationInfo {
	info := &ReservationInfo{
		ID:                 r.ID,
		Slug:               r.Slug,
		CheckInAt:          s.tariff.Local(r.CheckInAt),
		CheckOutAt:         s.tariff.Local(r.CheckOutAt),
		TotalPersonsAmount: r.TotalPersonsAmount,
		PreferredContact:   r.PreferredContact,
		Comment:            r.Comment,
		Cancelled:          r.Cancelled,
		LookupURL:          s.lookupURL(r.Slug),
		CreatedAt:          r.CreatedAt,
	}
	if r.House != nil {
		info.House = &HouseBrief{ID: r.House.ID, Name: r.House.Name}
	}
	if r.Client != nil {
		info.Client = &ClientInfo{Email: r.Client.Email, FirstName: r.Client.FirstName, LastName: r.Client.LastName}
	}
	if r.Bill != nil {
		info.Bill = &BillInfo{
			Total:                     r.Bill.Total,
			ChronologicalPositions:    r.Bill.ChronologicalPositions,
			NonChronologicalPositions: r.Bill.NonChronologicalPositions,
			Paid:                      r.Bill.Paid,
			PaidAt:                    r.Bill.PaidAt,
		}
		if r.Bill.PromoCode != nil {
			info.Bill.PromoCode = r.Bill.PromoCode.Code
		}
	}
	return info
}

func (s *Service) message(r *models.Reservation) *notification.Message {
	msg := &notification.Message{
		ReservationSlug: r.Slug,
		CheckInAt:       s.tariff.Local(r.CheckInAt),
		CheckOutAt:      s.tariff.Local(r.CheckOutAt),
		TotalPersons:    r.TotalPersonsAmount,
		LookupURL:       s.lookupURL(r.Slug),
	}
	if r.House != nil {
		msg.HouseName = r.House.Name
	}
	if r.Client != nil {
		msg.ClientEmail = r.Client.Email
		msg.ClientName = r.Client.FullName()
	}
	if r.Bill != nil {
		msg.Total = r.Bill.Total
		msg.Paid = r.Bill.Paid
	}
	return msg
}

func validateClient(c *ClientInfo) error {
	if !utils.ValidateEmail(strings.TrimSpace(c.Email)) {
		return errors.ErrInvalidClient.WithMessage("邮箱格式不正确")
	}
	if !utils.ValidatePersonName(c.FirstName) || !utils.ValidatePersonName(c.LastName) {
		return errors.ErrInvalidClient.WithMessage("姓名格式不正确")
	}
	return nil
}

// mapPersistError 事务错误：业务错误原样返回，排他约束冲突视为时段冲突，其余为数据库错误
func mapPersistError(err error) error {
	if database.IsExclusionViolation(err) {
		return errors.ErrReservationConflict.WithError(err)
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.ErrDatabaseError.WithError(err)
}

func notFoundOr(err error, notFound *errors.AppError) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return errors.ErrDatabaseError.WithError(err)
}

func commitResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, errors.ErrReservationConflict):
		return metrics.ResultConflict
	}
	if appErr := errors.GetAppError(err); appErr.Kind == errors.KindValidation || appErr.Kind == errors.KindConflict || appErr.Kind == errors.KindNotFound {
		return metrics.ResultRejected
	}
	return metrics.ResultError
}
