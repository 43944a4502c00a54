package rules

import "github.com/vectis-research/sinotrace/internal/model"

// Default returns the shipped rule tables. These are a starting point:
// production runs load a versioned rules.yaml instead so deny-list and
// weight updates never require a code change.
func Default() *Rules {
	return &Rules{
		Version: 1,

		Weights: Weights{
			CountryCode:       100,
			HongKong:          80,
			EntityNameKnown:   100,
			EntityNameGeo:     60,
			EntityNameGeneric: 60,
			GeographicToken:   25,
			ProductSourcing:   40,
		},

		Confidence: ConfidenceThresholds{High: 100, Medium: 70, Low: 50},

		Country: CountryTables{
			ChinaCodes: []string{
				"CN", "CHN", "CHINA", "PRC",
				"PEOPLE'S REPUBLIC OF CHINA", "PEOPLES REPUBLIC OF CHINA",
			},
			ChinaCities: []string{
				"BEIJING", "SHANGHAI", "SHENZHEN", "GUANGZHOU", "TIANJIN",
				"CHONGQING", "CHENGDU", "WUHAN", "NANJING", "HANGZHOU", "XIAN",
			},
			TaiwanExclusions: []string{
				"TAIWAN", "REPUBLIC OF CHINA (TAIWAN)", "TAIPEI", "TWN", "ROC",
			},
			HongKong: []string{"HONG KONG", "HK", "HKG", "H.K."},
		},

		Entities: EntityTables{
			Known: []string{
				"HUAWEI", "ZTE CORPORATION", "HIKVISION", "DAHUA TECHNOLOGY",
				"SMIC", "SEMICONDUCTOR MANUFACTURING INTERNATIONAL",
				"DJI", "LENOVO", "XIAOMI", "BYD", "CATL",
				"CHINA MOBILE", "CHINA TELECOM", "CHINA UNICOM",
				"SINOPEC", "PETROCHINA", "CNOOC", "COSCO",
				"AVIC", "NORINCO", "CASIC", "CASC", "CETC", "CRRC",
				"TENCENT", "ALIBABA", "BAIDU", "BYTEDANCE",
				"TSINGHUA UNIGROUP", "INSPUR", "SUGON", "CAMBRICON", "IFLYTEK",
				"SENSETIME", "MEGVII", "YITU", "BGI GENOMICS", "WUXI APPTEC",
			},
			Strategic: []string{
				"HUAWEI", "ZTE CORPORATION", "HIKVISION", "DAHUA TECHNOLOGY",
				"SMIC", "SEMICONDUCTOR MANUFACTURING INTERNATIONAL",
				"AVIC", "NORINCO", "CASIC", "CASC", "CETC",
				"TSINGHUA UNIGROUP", "INSPUR", "SUGON", "CAMBRICON",
				"SENSETIME", "MEGVII", "YITU", "BGI GENOMICS",
			},
			GeoTokens: []string{
				"BEIJING", "SHANGHAI", "SHENZHEN", "GUANGZHOU", "TIANJIN",
				"CHONGQING", "CHENGDU", "WUHAN", "NANJING", "HANGZHOU",
				"SUZHOU", "DONGGUAN", "NINGBO", "QINGDAO", "DALIAN", "XIAMEN",
				"GUANGDONG", "JIANGSU", "ZHEJIANG", "SHANDONG", "SICHUAN",
				"FUJIAN", "HUNAN", "HUBEI", "ANHUI", "LIAONING", "SHAANXI",
			},
			GenericTokens: []string{"CHINA", "CHINESE", "SINO"},
		},

		SourcingPhrases: []string{
			"MADE IN CHINA", "MADE IN PRC", "MADE IN P.R.C.",
			"MANUFACTURED IN CHINA", "MANUFACTURED IN PRC",
			"COUNTRY OF ORIGIN: CHINA", "COUNTRY OF ORIGIN CHINA",
			"ORIGIN: CHINA", "PRODUCT OF CHINA", "SOURCED FROM CHINA",
			"IMPORTED FROM CHINA", "CHINESE ORIGIN", "CHINA ORIGIN",
		},

		GeoPatterns: []NamedPattern{
			// Mainland 6-digit postal codes start 0-8 (9xxxxx is unassigned).
			{Name: "mainland_postal_code", Pattern: `\b[0-8]\d{5}\b`},
			{Name: "cn_phone", Pattern: `(?:\+|00)\s?86[-.\s]?(?:\d[-.\s]?){9,11}`},
			{Name: "cn_street", Pattern: `(?i)\b(?:\w+\s+(?:lu|jie|dadao)|district\s+of\s+\w+,\s*china)\b`},
		},

		FalsePositives: FalsePositives{
			Exact: []string{
				"T K C ENTERPRISES", "COMAC PUMP", "AZTEC ENVIRONMENTAL",
				"KACHINA VENTURES", "CATALINA CHINA", "INDOCHINA EXPRESS",
				"CHINA GROVE TRADING POST",
			},
			Patterns: []NamedPattern{
				// Default-deny for restaurant/porcelain names. Operators who
				// want "China Grill"-style matches delete this bucket.
				{
					Name:    "cuisine and ceramics",
					Pattern: `(?i)\b(?:restaurant|buffet|bistro|cuisine|grill|wok|takeout|take-out|catering|porcelain|ceramics?|pottery|dinnerware|tableware|chinaware)\b`,
				},
				{
					Name:    "us place names",
					Pattern: `(?i)\bchina\s+(?:grove|lake|spring|springs|township|camp)\b`,
				},
				{
					Name:    "hospitality",
					Pattern: `(?i)\b(?:casino|hotel|resort|lounge|karaoke)\b`,
				},
			},
		},

		Categories: Categories{
			Strategic: []KeywordBucket{
				{Name: "semiconductors", Keywords: []string{
					"semiconductor", "microelectronics", "integrated circuit",
					"chip fabrication", "lithography", "wafer", "foundry",
				}},
				{Name: "artificial intelligence", Keywords: []string{
					"artificial intelligence", "machine learning", "neural network",
					"facial recognition", "computer vision", "autonomous",
				}},
				{Name: "quantum", Keywords: []string{
					"quantum computing", "quantum communication", "quantum sensor",
					"quantum cryptography",
				}},
				{Name: "aerospace and hypersonics", Keywords: []string{
					"hypersonic", "missile", "satellite", "spacecraft", "propulsion",
					"avionics", "uav", "unmanned aerial",
				}},
				{Name: "biotechnology", Keywords: []string{
					"biotech", "genomic", "gene sequencing", "crispr", "synthetic biology",
				}},
				{Name: "advanced networking", Keywords: []string{
					"5g", "telecommunications infrastructure", "network switches",
					"fiber optic", "router", "base station",
				}},
			},
			Commodity: []KeywordBucket{
				{Name: "office supplies", Keywords: []string{
					"toner", "cartridge", "stationery", "paper clips", "binder",
					"envelope", "office supplies",
				}},
				{Name: "kitchen and janitorial", Keywords: []string{
					"kitchen", "janitorial", "cleaning supplies", "mop", "detergent",
					"utensil", "cookware",
				}},
				{Name: "generic hardware", Keywords: []string{
					"fastener", "screw", "bolt", "hand tool", "plumbing", "fitting",
					"lumber", "paint",
				}},
				{Name: "apparel", Keywords: []string{
					"apparel", "uniform", "clothing", "footwear", "t-shirt", "garment",
				}},
			},
		},

		Tiering: Tiering{MinDescriptionLen: 20},

		Dedupe: Dedupe{
			Threshold: 0.85,
			Weights:   model.SimilarityWeights{Name: 0.4, Country: 0.3, Date: 0.2, Type: 0.1},
		},
	}
}

// DefaultCompiled compiles the shipped rule tables. Panics on a compile
// failure, which would be a programming error in the defaults themselves.
func DefaultCompiled() *Compiled {
	c, err := Compile(Default())
	if err != nil {
		panic(err)
	}
	return c
}
