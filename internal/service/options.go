package service

// Choices offered by the admin forms.
var (
	TechnologyOptions = []string{
		"JavaScript", "TypeScript", "Python", "React", "Next.js", "Node.js", "Supabase", "Tailwind CSS", "HTML", "CSS",
	}
	CategoryOptions = []string{
		"Webアプリケーション開発", "LP・Webサイト制作", "業務効率化ツール開発", "プロトタイプ開発", "その他",
	}
	RoleOptions = []string{
		"企画・要件定義", "プロジェクト管理", "UI/UXデザイン", "フロントエンド開発", "バックエンド開発", "データベース設計",
	}
)
