package report

// Stock report configurations for the Sponsored Products and Sponsored
// Display reporting endpoints. Each Config is pure data; the engine treats
// all variants identically.

const (
	adProductSponsoredProducts = "SPONSORED_PRODUCTS"
	adProductSponsoredDisplay  = "SPONSORED_DISPLAY"

	timeUnitDaily  = "DAILY"
	formatGzipJSON = "GZIP_JSON"

	defaultLookbackDays = 30
)

func str(name string) Field     { return Field{Name: name, Kind: KindString} }
func date(name string) Field    { return Field{Name: name, Kind: KindString, Format: "date"} }
func integer(name string) Field { return Field{Name: name, Kind: KindInteger} }
func number(name string) Field  { return Field{Name: name, Kind: KindNumber} }

// columnNames derives the requested report columns from the schema, keeping
// the schema as the single source of truth for each variant.
func columnNames(schema []Field) []string {
	names := make([]string, len(schema))
	for i, field := range schema {
		names[i] = field.Name
	}

	return names
}

// StockReports returns the report variants the extractor runs by default.
func StockReports() []Config {
	return []Config{
		CampaignPerformance(),
		SearchTerms(),
		AdvertisedProduct(),
		KeywordsTargetingSummary(),
		SponsoredDisplayAdvertisedProduct(),
	}
}

// CampaignPerformance reports daily Sponsored Products metrics grouped by
// campaign.
func CampaignPerformance() Config {
	schema := []Field{
		date("date"),
		str("campaignId"),
		str("campaignName"),
		str("campaignStatus"),
		str("campaignBudgetType"),
		number("campaignBudgetAmount"),
		number("campaignRuleBasedBudgetAmount"),
		str("campaignApplicableBudgetRuleId"),
		str("campaignApplicableBudgetRuleName"),
		str("campaignBudgetCurrencyCode"),
		str("campaignBiddingStrategy"),
		integer("impressions"),
		integer("clicks"),
		number("cost"),
		number("costPerClick"),
		number("clickThroughRate"),
		number("spend"),
		integer("purchases1d"),
		integer("purchases7d"),
		integer("purchases14d"),
		integer("purchases30d"),
		integer("purchasesSameSku1d"),
		integer("purchasesSameSku7d"),
		integer("purchasesSameSku14d"),
		integer("purchasesSameSku30d"),
		integer("unitsSoldClicks1d"),
		integer("unitsSoldClicks7d"),
		integer("unitsSoldClicks14d"),
		integer("unitsSoldClicks30d"),
		number("sales1d"),
		number("sales7d"),
		number("sales14d"),
		number("sales30d"),
		number("attributedSalesSameSku1d"),
		number("attributedSalesSameSku7d"),
		number("attributedSalesSameSku14d"),
		number("attributedSalesSameSku30d"),
		integer("unitsSoldSameSku1d"),
		integer("unitsSoldSameSku7d"),
		integer("unitsSoldSameSku14d"),
		integer("unitsSoldSameSku30d"),
		integer("kindleEditionNormalizedPagesRead14d"),
		number("kindleEditionNormalizedPagesRoyalties14d"),
		integer("qualifiedBorrows"),
		integer("royaltyQualifiedBorrows"),
		integer("addToList"),
		number("acosClicks14d"),
		number("roasClicks14d"),
		number("topOfSearchImpressionShare"),
		str("retailer"),
	}

	return Config{
		Name:           "campaign_performance_report",
		NamePrefix:     "Campaign_Performance",
		AdProduct:      adProductSponsoredProducts,
		GroupBy:        []string{"campaign"},
		Columns:        columnNames(schema),
		ReportTypeID:   "spCampaigns",
		TimeUnit:       timeUnitDaily,
		Format:         formatGzipJSON,
		Schema:         schema,
		PrimaryKeys:    []string{"campaignId", "date"},
		ReplicationKey: "date",
		LookbackDays:   defaultLookbackDays,
	}
}

// SearchTerms reports daily Sponsored Products metrics grouped by customer
// search term.
func SearchTerms() Config {
	schema := []Field{
		date("date"),
		str("campaignId"),
		str("adGroupId"),
		str("keywordId"),
		str("targeting"),
		str("searchTerm"),
		integer("impressions"),
		integer("clicks"),
		number("cost"),
		integer("purchases1d"),
		integer("purchases7d"),
		integer("purchases14d"),
		integer("purchases30d"),
	}

	return Config{
		Name:           "search_terms_report",
		NamePrefix:     "SP_Search_Term",
		AdProduct:      adProductSponsoredProducts,
		GroupBy:        []string{"searchTerm"},
		Columns:        columnNames(schema),
		ReportTypeID:   "spSearchTerm",
		TimeUnit:       timeUnitDaily,
		Format:         formatGzipJSON,
		Schema:         schema,
		PrimaryKeys:    []string{"campaignId", "searchTerm", "keywordId", "date"},
		ReplicationKey: "date",
		LookbackDays:   defaultLookbackDays,
	}
}

// AdvertisedProduct reports daily Sponsored Products metrics per advertised
// ASIN, filtered to every creative status so paused and archived ads still
// report.
func AdvertisedProduct() Config {
	schema := []Field{
		date("date"),
		str("campaignId"),
		str("campaignName"),
		str("campaignStatus"),
		str("adGroupId"),
		str("adGroupName"),
		str("adId"),
		str("portfolioId"),
		str("advertisedAsin"),
		str("advertisedSku"),
		str("campaignBudgetCurrencyCode"),
		number("campaignBudgetAmount"),
		str("campaignBudgetType"),
		integer("impressions"),
		integer("clicks"),
		number("cost"),
		number("spend"),
		number("costPerClick"),
		number("clickThroughRate"),
		integer("purchases1d"),
		integer("purchases7d"),
		integer("purchases14d"),
		integer("purchases30d"),
		integer("purchasesSameSku1d"),
		integer("purchasesSameSku7d"),
		integer("purchasesSameSku14d"),
		integer("purchasesSameSku30d"),
		integer("unitsSoldClicks1d"),
		integer("unitsSoldClicks7d"),
		integer("unitsSoldClicks14d"),
		integer("unitsSoldClicks30d"),
		number("sales1d"),
		number("sales7d"),
		number("sales14d"),
		number("sales30d"),
		number("attributedSalesSameSku1d"),
		number("attributedSalesSameSku7d"),
		number("attributedSalesSameSku14d"),
		number("attributedSalesSameSku30d"),
		number("salesOtherSku7d"),
		integer("unitsSoldSameSku1d"),
		integer("unitsSoldSameSku7d"),
		integer("unitsSoldSameSku14d"),
		integer("unitsSoldSameSku30d"),
		integer("unitsSoldOtherSku7d"),
		integer("kindleEditionNormalizedPagesRead14d"),
		number("kindleEditionNormalizedPagesRoyalties14d"),
		number("acosClicks7d"),
		number("acosClicks14d"),
		number("roasClicks7d"),
		number("roasClicks14d"),
	}

	return Config{
		Name:         "advertised_product_report",
		NamePrefix:   "SponsoredProductsAdvertisedProductDailyReport",
		AdProduct:    adProductSponsoredProducts,
		GroupBy:      []string{"advertiser"},
		Columns:      columnNames(schema),
		ReportTypeID: "spAdvertisedProduct",
		TimeUnit:     timeUnitDaily,
		Format:       formatGzipJSON,
		Filters: []Filter{
			{Field: "adCreativeStatus", Values: []string{"ENABLED", "PAUSED", "ARCHIVED"}},
		},
		Schema:         schema,
		PrimaryKeys:    []string{"date", "campaignId", "adGroupId", "adId", "advertisedAsin"},
		ReplicationKey: "date",
		LookbackDays:   defaultLookbackDays,
	}
}

// KeywordsTargetingSummary reports daily Sponsored Products metrics grouped
// by targeting expression, covering every keyword type and status.
func KeywordsTargetingSummary() Config {
	schema := []Field{
		date("date"),
		str("campaignId"),
		str("campaignName"),
		str("campaignStatus"),
		str("campaignBudgetType"),
		number("campaignBudgetAmount"),
		str("campaignBudgetCurrencyCode"),
		str("portfolioId"),
		str("adGroupId"),
		str("adGroupName"),
		str("keywordId"),
		str("keyword"),
		number("keywordBid"),
		str("keywordType"),
		str("matchType"),
		str("targeting"),
		str("adKeywordStatus"),
		integer("impressions"),
		integer("clicks"),
		number("cost"),
		number("costPerClick"),
		number("clickThroughRate"),
		integer("purchases1d"),
		integer("purchases7d"),
		integer("purchases14d"),
		integer("purchases30d"),
		integer("purchasesSameSku1d"),
		integer("purchasesSameSku7d"),
		integer("purchasesSameSku14d"),
		integer("purchasesSameSku30d"),
		integer("unitsSoldClicks1d"),
		integer("unitsSoldClicks7d"),
		integer("unitsSoldClicks14d"),
		integer("unitsSoldClicks30d"),
		number("sales1d"),
		number("sales7d"),
		number("sales14d"),
		number("sales30d"),
		number("attributedSalesSameSku1d"),
		number("attributedSalesSameSku7d"),
		number("attributedSalesSameSku14d"),
		number("attributedSalesSameSku30d"),
		number("salesOtherSku7d"),
		integer("unitsSoldSameSku1d"),
		integer("unitsSoldSameSku7d"),
		integer("unitsSoldSameSku14d"),
		integer("unitsSoldSameSku30d"),
		integer("unitsSoldOtherSku7d"),
		integer("kindleEditionNormalizedPagesRead14d"),
		number("kindleEditionNormalizedPagesRoyalties14d"),
		number("acosClicks7d"),
		number("acosClicks14d"),
		number("roasClicks7d"),
		number("roasClicks14d"),
	}

	return Config{
		Name:         "keywords_targeting_summary_report",
		NamePrefix:   "SponsoredProductsKeywordsAndTargetingSummaryReport",
		AdProduct:    adProductSponsoredProducts,
		GroupBy:      []string{"targeting"},
		Columns:      columnNames(schema),
		ReportTypeID: "spTargeting",
		TimeUnit:     timeUnitDaily,
		Format:       formatGzipJSON,
		Filters: []Filter{
			{Field: "keywordType", Values: []string{
				"BROAD",
				"PHRASE",
				"EXACT",
				"TARGETING_EXPRESSION",
				"TARGETING_EXPRESSION_PREDEFINED",
			}},
			{Field: "adKeywordStatus", Values: []string{"ENABLED", "PAUSED", "ARCHIVED"}},
		},
		Schema:         schema,
		PrimaryKeys:    []string{"date", "campaignId", "targeting"},
		ReplicationKey: "date",
		LookbackDays:   defaultLookbackDays,
	}
}

// SponsoredDisplayAdvertisedProduct reports daily Sponsored Display metrics
// per promoted ASIN.
func SponsoredDisplayAdvertisedProduct() Config {
	schema := []Field{
		date("date"),
		str("campaignId"),
		str("campaignName"),
		str("campaignBudgetCurrencyCode"),
		str("adGroupId"),
		str("adGroupName"),
		str("adId"),
		str("promotedAsin"),
		str("promotedSku"),
		str("bidOptimization"),
		integer("impressions"),
		integer("impressionsViews"),
		integer("clicks"),
		number("cost"),
		integer("purchases"),
		integer("purchasesClicks"),
		integer("purchasesPromotedClicks"),
		integer("detailPageViews"),
		integer("detailPageViewsClicks"),
		number("sales"),
		number("salesClicks"),
		number("salesPromotedClicks"),
		integer("unitsSold"),
		integer("unitsSoldClicks"),
		integer("newToBrandPurchases"),
		integer("newToBrandPurchasesClicks"),
		number("newToBrandSales"),
		number("newToBrandSalesClicks"),
		integer("newToBrandUnitsSold"),
		integer("newToBrandUnitsSoldClicks"),
		integer("brandedSearches"),
		integer("brandedSearchesClicks"),
		integer("brandedSearchesViews"),
		number("brandedSearchRate"),
		number("eCPBrandSearch"),
		integer("videoCompleteViews"),
		integer("videoFirstQuartileViews"),
		integer("videoMidpointViews"),
		integer("videoThirdQuartileViews"),
		integer("videoUnmutes"),
		number("viewabilityRate"),
		number("viewClickThroughRate"),
		number("impressionsFrequencyAverage"),
		integer("cumulativeReach"),
		integer("newToBrandDetailPageViews"),
		integer("newToBrandDetailPageViewViews"),
		integer("newToBrandDetailPageViewClicks"),
		number("newToBrandDetailPageViewRate"),
		number("newToBrandECPDetailPageView"),
		integer("addToCart"),
		integer("addToCartViews"),
		integer("addToCartClicks"),
		number("addToCartRate"),
		number("eCPAddToCart"),
	}

	return Config{
		Name:           "sd_advertised_product_report",
		NamePrefix:     "SponsoredDisplayAdvertisedProductDailyReport",
		AdProduct:      adProductSponsoredDisplay,
		GroupBy:        []string{"advertiser"},
		Columns:        columnNames(schema),
		ReportTypeID:   "sdAdvertisedProduct",
		TimeUnit:       timeUnitDaily,
		Format:         formatGzipJSON,
		Schema:         schema,
		PrimaryKeys:    []string{"date", "campaignId", "adGroupId", "adId", "promotedAsin"},
		ReplicationKey: "date",
		LookbackDays:   defaultLookbackDays,
	}
}
