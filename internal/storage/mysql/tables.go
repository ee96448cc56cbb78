package mysql

// Resource tables served by the generic store. Translation tables carry the
// owning entity's id in their foreign key column plus language_code.
var (
	Currencies = Table{
		Name:    "currencies",
		Columns: []string{"code", "symbol", "exchange_rate", "status"},
		Search:  []string{"code", "symbol"},
	}
	CurrencyTranslations = Table{
		Name:    "currency_translations",
		Columns: []string{"currency_id", "language_code", "name"},
		Search:  []string{"name"},
	}

	Blogs = Table{
		Name:    "blogs",
		Columns: []string{"slug", "image", "status"},
		Search:  []string{"slug"},
	}
	BlogTranslations = Table{
		Name:    "blog_translations",
		Columns: []string{"blog_id", "language_code", "title", "content"},
		Search:  []string{"title"},
	}

	Campaigns = Table{
		Name:    "campaigns",
		Columns: []string{"code", "discount_percent", "starts_at", "ends_at", "status"},
		Search:  []string{"code"},
	}
	CampaignTranslations = Table{
		Name:    "campaign_translations",
		Columns: []string{"campaign_id", "language_code", "title", "description"},
		Search:  []string{"title"},
	}

	Permissions = Table{
		Name:    "permissions",
		Columns: []string{"target_type", "target_id", "name", "granted"},
	}
	RolePermissions = Table{
		Name:    "role_permissions",
		Columns: []string{"role_id", "name", "granted"},
	}

	Users = Table{
		Name:    "users",
		Columns: []string{"name", "email", "status"},
		Search:  []string{"name", "email"},
	}
	DealerUsers = Table{
		Name:    "dealer_users",
		Columns: []string{"dealer_id", "name", "email", "status"},
		Search:  []string{"name", "email"},
	}
	Admins = Table{
		Name:    "admins",
		Columns: []string{"role_id", "name", "email", "status"},
		Search:  []string{"name", "email"},
	}
	SolutionPartners = Table{
		Name:    "solution_partners",
		Columns: []string{"name", "email", "status"},
		Search:  []string{"name", "email"},
	}
	SalesPartners = Table{
		Name:    "sale_partners",
		Columns: []string{"name", "email", "status"},
		Search:  []string{"name", "email"},
	}
)
