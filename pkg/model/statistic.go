package model

// DayFormat is the layout of DailyStatistic.Day.
const DayFormat = "2006-01-02"

// DailyStatistic aggregates the batches run on one day.
type DailyStatistic struct {
	Day       string `gorm:"column:day;primaryKey" json:"-"`
	Serials   int    `gorm:"column:serials" json:"serials"`
	Batches   int    `gorm:"column:batches" json:"batches"`
	Successes int    `gorm:"column:successes" json:"success"`
	Errors    int    `gorm:"column:errors" json:"errors"`
}

func (DailyStatistic) TableName() string {
	return "daily_statistics"
}

// ProductStatistic counts the serials produced for a product.
type ProductStatistic struct {
	Product string `gorm:"column:product;primaryKey" json:"product"`
	Serials int    `gorm:"column:serials" json:"serials"`
}

func (ProductStatistic) TableName() string {
	return "product_statistics"
}
